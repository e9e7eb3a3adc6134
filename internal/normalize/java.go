package normalize

import "regexp"

const javaEntryClass = "Main"

var (
	javaPublicClass = regexp.MustCompile(`\bpublic\s+(?:(?:final|abstract|strictfp)\s+)*class\s+([A-Za-z_$][\w$]*)`)
	javaHasMain     = regexp.MustCompile(`\bclass\s+` + javaEntryClass + `\b`)
)

// java renames the public class to Main along with every whole-token
// reference to it (constructors, static calls, declarations). Code that
// already declares a Main class is left alone.
func java(code string) string {
	m := javaPublicClass.FindStringSubmatch(code)
	if m == nil || m[1] == javaEntryClass || javaHasMain.MatchString(code) {
		return code
	}

	name := regexp.MustCompile(`\b` + regexp.QuoteMeta(m[1]) + `\b`)
	code = name.ReplaceAllLiteralString(code, javaEntryClass)

	decl := regexp.MustCompile(`\bpublic\s+class\s+` + javaEntryClass + `\b`)
	return decl.ReplaceAllLiteralString(code, "public class "+javaEntryClass)
}
