package normalize

import "regexp"

const (
	cppIostream = "#include <iostream>"
	cppUsingStd = "using namespace std;"
)

var (
	cppConsoleIO   = regexp.MustCompile(`\b(cout|cin)\b`)
	cppHasIostream = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*include[ \t]*<iostream>`)
	cppHasUsingStd = regexp.MustCompile(`\busing\s+namespace\s+std\s*;`)
	cppIncludeLine = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*include[^\n]*$`)
)

// cpp adds the iostream include and the std using-directive when console I/O
// is used without them. The include always ends up above the directive.
func cpp(code string) string {
	if !cppConsoleIO.MatchString(code) {
		return code
	}

	if !cppHasUsingStd.MatchString(code) {
		// after the last include, so std is declared by the time it is used
		if locs := cppIncludeLine.FindAllStringIndex(code, -1); len(locs) > 0 {
			end := locs[len(locs)-1][1]
			code = code[:end] + "\n" + cppUsingStd + code[end:]
		} else {
			code = cppUsingStd + "\n" + code
		}
	}
	if !cppHasIostream.MatchString(code) {
		code = cppIostream + "\n" + code
	}
	return code
}
