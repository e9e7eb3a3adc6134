package domain

import "strings"

type Language string

const (
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangCPP        Language = "cpp"
	LangJava       Language = "java"

	DefaultLanguage = LangJavaScript
	DefaultCode     = "// Write your code here\n"
)

// Judge0 CE language ids
var languageIDs = map[Language]int{
	LangJavaScript: 63,
	LangPython:     71,
	LangCPP:        54,
	LangJava:       62,
}

// LanguageID maps a language tag to the sandbox language id.
func LanguageID(lang Language) (int, bool) {
	id, ok := languageIDs[Language(strings.ToLower(strings.TrimSpace(string(lang))))]
	return id, ok
}

func SupportedLanguages() []Language {
	return []Language{LangJavaScript, LangPython, LangCPP, LangJava}
}
