package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cwrk-planet/codecollab/internal/domain"
)

func TestNormalize_Java(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "renames public class and its references",
			in:   "public class Solver { public static void main(String[] a){ System.out.println(1); } }",
			want: "public class Main { public static void main(String[] a){ System.out.println(1); } }",
		},
		{
			name: "constructor and static calls",
			in:   "public  class Foo {\n  Foo() {}\n  static int x = Foo.helper();\n  FooBar y;\n}",
			want: "public class Main {\n  Main() {}\n  static int x = Main.helper();\n  FooBar y;\n}",
		},
		{
			name: "already Main",
			in:   "public class Main { }",
			want: "public class Main { }",
		},
		{
			name: "no public class",
			in:   "class Helper { }",
			want: "class Helper { }",
		},
		{
			name: "final modifier kept",
			in:   "public final class App { App a; }",
			want: "public final class Main { Main a; }",
		},
		{
			name: "existing Main class blocks rename",
			in:   "public class Solver { }\nclass Main { public static void main(String[] a){ new Solver(); } }",
			want: "public class Solver { }\nclass Main { public static void main(String[] a){ new Solver(); } }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(domain.LangJava, tt.in))
		})
	}
}

func TestNormalize_CPP(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "adds both",
			in:   "int main(){ cout << 1; }",
			want: "#include <iostream>\nusing namespace std;\nint main(){ cout << 1; }",
		},
		{
			name: "using goes below existing include",
			in:   "#include <iostream>\nint main(){ int x; cin >> x; }",
			want: "#include <iostream>\nusing namespace std;\nint main(){ int x; cin >> x; }",
		},
		{
			name: "include added above existing using",
			in:   "using namespace std;\nint main(){ cout << 1; }",
			want: "#include <iostream>\nusing namespace std;\nint main(){ cout << 1; }",
		},
		{
			name: "no console io",
			in:   "int main(){ return 0; }",
			want: "int main(){ return 0; }",
		},
		{
			name: "partial identifiers ignored",
			in:   "int main(){ int coutner = 0; return coutner; }",
			want: "int main(){ int coutner = 0; return coutner; }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(domain.LangCPP, tt.in))
		})
	}
}

func TestNormalize_Python(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"print statement", "print 'hi'", "print('hi')"},
		{"indented print", "if x:\n    print x, y\n", "if x:\n    print(x, y)\n"},
		{"call syntax untouched", "print('hi')\nprint (1)", "print('hi')\nprint (1)"},
		{"assignment to print untouched", "print = log", "print = log"},
		{"raw_input", "name = raw_input()", "name = input()"},
		{"adds math", "print(math.pi)", "import math\nprint(math.pi)"},
		{"sqrt implies math", "x = sqrt(4)", "import math\nx = sqrt(4)"},
		{"numpy sqrt is not math", "x = np.sqrt(4)", "x = np.sqrt(4)"},
		{"math imported via from", "from math import sqrt\nx = sqrt(4)", "from math import sqrt\nx = sqrt(4)"},
		{
			"several imports in fixed order",
			"x = randint(1, 2)\nsys.exit(math.floor(x))",
			"import math\nimport random\nimport sys\nx = randint(1, 2)\nsys.exit(math.floor(x))",
		},
		{"existing import kept", "import os, sys\nsys.exit(0)", "import os, sys\nsys.exit(0)"},
		{"trailing comment stays outside", "print x  # show x", "print(x)  # show x"},
		{"second statement stays outside", "print x; y = 1", "print(x); y = 1"},
		{"trailing semicolon dropped", "print x;", "print(x)"},
		{"hash inside string", "print 'a # b'  # c", "print('a # b')  # c"},
		{"semicolon inside string", `print "a;b"; z = 2`, `print("a;b"); z = 2`},
		{"comment only", "print # nothing", "print # nothing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(domain.LangPython, tt.in))
		})
	}
}

func TestNormalize_JavaScript(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"prompt rewritten",
			`const n = prompt("n?");`,
			"const readlineSync = require(\"readline-sync\");\nconst n = readlineSync.question(\"n?\");",
		},
		{
			"window.prompt rewritten",
			`let a = window.prompt("a");`,
			"const readlineSync = require(\"readline-sync\");\nlet a = readlineSync.question(\"a\");",
		},
		{
			"member prompt kept",
			`rl.prompt();`,
			`rl.prompt();`,
		},
		{
			"already importing helper",
			"const readlineSync = require(\"readline-sync\");\nprompt('x')",
			"const readlineSync = require(\"readline-sync\");\nprompt('x')",
		},
		{
			"no input",
			`console.log(1)`,
			`console.log(1)`,
		},
		{
			"user input helper untouched",
			"function input(q) { return 42; }\nconsole.log(input('x'));",
			"function input(q) { return 42; }\nconsole.log(input('x'));",
		},
		{
			"own prompt function",
			"function prompt(q) { return 42; }\nconsole.log(prompt('x'));",
			"function prompt(q) { return 42; }\nconsole.log(prompt('x'));",
		},
		{
			"prompt method on one line",
			"class A { prompt(x) { return x; } }\nnew A().prompt(1);",
			"class A { prompt(x) { return x; } }\nnew A().prompt(1);",
		},
		{
			"prompt method on its own line",
			"class A {\n  async prompt(x) {\n    return x;\n  }\n}",
			"class A {\n  async prompt(x) {\n    return x;\n  }\n}",
		},
		{
			"prompt bound to a variable",
			"const prompt = require(\"prompt-sync\")();\nconst n = prompt(\"n?\");",
			"const prompt = require(\"prompt-sync\")();\nconst n = prompt(\"n?\");",
		},
		{
			"prompt object property",
			"const io = { prompt: (q) => q };\nio.prompt(1);",
			"const io = { prompt: (q) => q };\nio.prompt(1);",
		},
		{
			"prompt inside a block",
			"if (ok) { const n = prompt(\"n\"); }",
			"const readlineSync = require(\"readline-sync\");\nif (ok) { const n = readlineSync.question(\"n\"); }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(domain.LangJavaScript, tt.in))
		})
	}
}

func TestNormalize_UnknownLanguagePassesThrough(t *testing.T) {
	code := "print 'hi'\ncout << 1"
	assert.Equal(t, code, Normalize("ruby", code))
	assert.Equal(t, code, Normalize("py", code))
}

func TestNormalize_LanguageTagCaseAndSpace(t *testing.T) {
	assert.Equal(t, "print('hi')", Normalize(" Python ", "print 'hi'"))
}

func TestNormalize_Idempotent(t *testing.T) {
	corpus := map[domain.Language][]string{
		domain.LangJava: {
			"public class Solver { public static void main(String[] a){ Solver s = new Solver(); } }",
			"public class Main {}",
			"import java.util.*;\npublic class X { }",
			"public class Solver { }\nclass Main { }",
		},
		domain.LangCPP: {
			"int main(){ cout << 1; }",
			"#include <vector>\nint main(){ cin >> x; }",
			"#include <iostream>\nusing namespace std;\nint main(){}",
		},
		domain.LangPython: {
			"print 'hi'",
			"print x  # show x\nprint y; z = 1",
			"x = raw_input()\nprint x\nprint(math.sqrt(random.random()))\nsys.exit()",
			"import math\nprint(math.pi)",
		},
		domain.LangJavaScript: {
			`const a = prompt("a"); const b = input();`,
			`console.log(1)`,
		},
	}

	for lang, samples := range corpus {
		for _, code := range samples {
			once := Normalize(lang, code)
			assert.Equal(t, once, Normalize(lang, once), "%s: %q", lang, code)
		}
	}
}
