package normalize

import (
	"regexp"
	"strings"
)

const (
	jsInputModule  = "readline-sync"
	jsInputRequire = `const readlineSync = require("readline-sync");`
	jsInputCall    = "readlineSync.question("
)

var (
	jsPromptCallSite = regexp.MustCompile(`\bprompt\s*\(`)

	// code that defines its own prompt keeps every call pointing at it
	jsDeclaresPrompt = []*regexp.Regexp{
		regexp.MustCompile(`\bfunction\b\s*\*?\s*prompt\s*\(`),
		regexp.MustCompile(`\b(?:const|let|var|class)\s+prompt\b`),
		regexp.MustCompile(`(?m)(?:^|[{};])[ \t]*(?:(?:async|static|get|set)[ \t]+)*\*?[ \t]*prompt\s*\([^()]*\)[ \t]*\{`),
		regexp.MustCompile(`(?:^|[^.\w$])prompt\s*(?::|=[^=])`),
	}
)

// javascript turns browser prompt() calls into readline-sync questions,
// since the sandbox runs Node without a browser.
func javascript(code string) string {
	if strings.Contains(code, jsInputModule) || declaresPrompt(code) {
		return code
	}

	rewritten, n := replaceCallSites(code)
	if n == 0 {
		return code
	}
	return jsInputRequire + "\n" + rewritten
}

func declaresPrompt(code string) bool {
	for _, re := range jsDeclaresPrompt {
		if re.MatchString(code) {
			return true
		}
	}
	return false
}

// replaceCallSites rewrites free-standing and window.-qualified calls only;
// member calls such as rl.prompt() belong to other APIs and are kept.
func replaceCallSites(code string) (string, int) {
	locs := jsPromptCallSite.FindAllStringIndex(code, -1)
	if len(locs) == 0 {
		return code, 0
	}

	var (
		b    strings.Builder
		last int
		n    int
	)
	for _, loc := range locs {
		start := loc[0]
		if strings.HasSuffix(code[:start], "window.") {
			start -= len("window.")
		}
		if start > 0 && isMemberOrIdent(code[start-1]) {
			continue
		}
		b.WriteString(code[last:start])
		b.WriteString(jsInputCall)
		last = loc[1]
		n++
	}
	b.WriteString(code[last:])
	return b.String(), n
}

func isMemberOrIdent(c byte) bool {
	return c == '.' || c == '$' || c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
