package normalize

import (
	"regexp"
	"strings"
)

var (
	// print "x"  ->  print("x"); a following "(" "=" or nothing means call syntax or assignment
	pyPrintStmt = regexp.MustCompile(`(?m)^([ \t]*)print[ \t]+([^(\s=,)>#;][^\r\n]*?)[ \t]*(\r?)$`)
	pyRawInput  = regexp.MustCompile(`\braw_input\s*\(`)
)

type pyModule struct {
	name string
	uses *regexp.Regexp
	has  *regexp.Regexp
}

// order is the order the imports appear in when several are added
var pyModules = []pyModule{
	{"math", regexp.MustCompile(`\bmath\.|(?:^|[^.\w])sqrt\s*\(`), pyImportOf("math")},
	{"random", regexp.MustCompile(`\brandom\.|(?:^|[^.\w])randint\s*\(`), pyImportOf("random")},
	{"sys", regexp.MustCompile(`\bsys\.`), pyImportOf("sys")},
}

func pyImportOf(mod string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[ \t]*(?:import[ \t]+(?:[\w.]+(?:[ \t]+as[ \t]+\w+)?[ \t]*,[ \t]*)*` +
		mod + `\b|from[ \t]+` + mod + `[ \t]+import\b)`)
}

// python ports Python 2 habits: print statements, raw_input and missing
// imports of math, random and sys.
func python(code string) string {
	code = pyPrintStmt.ReplaceAllStringFunc(code, printCall)
	code = pyRawInput.ReplaceAllLiteralString(code, "input(")

	var missing []string
	for _, m := range pyModules {
		if m.uses.MatchString(code) && !m.has.MatchString(code) {
			missing = append(missing, "import "+m.name)
		}
	}
	if len(missing) == 0 {
		return code
	}
	return strings.Join(missing, "\n") + "\n" + code
}

// printCall wraps the printed expression, which ends at the first # or ;
// outside a string literal. A lone trailing ; is dropped.
func printCall(line string) string {
	m := pyPrintStmt.FindStringSubmatch(line)
	indent, stmt, cr := m[1], m[2], m[3]

	cut := statementEnd(stmt)
	expr := strings.TrimRight(stmt[:cut], " \t")
	rest := stmt[len(expr):]
	if strings.TrimSpace(rest) == ";" {
		rest = ""
	}
	return indent + "print(" + expr + ")" + rest + cr
}

func statementEnd(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0 && c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '#' || c == ';':
			return i
		}
	}
	return len(s)
}
