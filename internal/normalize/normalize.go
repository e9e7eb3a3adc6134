// Package normalize rewrites common idiom mistakes so that submitted source
// runs under the sandbox's fixed runner for each language. Every rewrite is
// anchored on whole tokens and is idempotent: normalizing already-normalized
// code returns it unchanged.
package normalize

import (
	"strings"

	"github.com/cwrk-planet/codecollab/internal/domain"
)

type family int

const (
	familyUnknown family = iota
	familyJava
	familyCPP
	familyPython
	familyJavaScript
)

func familyOf(lang domain.Language) family {
	switch domain.Language(strings.ToLower(strings.TrimSpace(string(lang)))) {
	case domain.LangJava:
		return familyJava
	case domain.LangCPP:
		return familyCPP
	case domain.LangPython:
		return familyPython
	case domain.LangJavaScript:
		return familyJavaScript
	default:
		return familyUnknown
	}
}

// Normalize returns code rewritten for lang. Unknown languages pass through.
func Normalize(lang domain.Language, code string) string {
	switch familyOf(lang) {
	case familyJava:
		return java(code)
	case familyCPP:
		return cpp(code)
	case familyPython:
		return python(code)
	case familyJavaScript:
		return javascript(code)
	default:
		return code
	}
}
