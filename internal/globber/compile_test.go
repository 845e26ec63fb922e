package globber

import "testing"

func TestCompileGlobstar(t *testing.T) {
	m, err := Compile("**/*.ts")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, path := range []string{"src/a.ts", "a.ts", "deep/nested/dir/b.ts"} {
		if !m.Match(path) {
			t.Errorf("%q should match **/*.ts", path)
		}
	}
	for _, path := range []string{"a.tsx", "src/a.tsx", "a.ts.bak"} {
		if m.Match(path) {
			t.Errorf("%q should not match **/*.ts", path)
		}
	}
}

func TestCompileBraces(t *testing.T) {
	m, err := Compile("*.{ts,tsx}")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !m.Match("a.ts") || !m.Match("a.tsx") {
		t.Fatal("brace alternation should match both extensions")
	}
	if m.Match("a.js") {
		t.Fatal("a.js should not match *.{ts,tsx}")
	}
	if m.Match("src/a.ts") {
		t.Fatal("single star must not cross path separators")
	}
}

func TestCompileNestedBraces(t *testing.T) {
	m, err := Compile("src/{a,b/{c,d}}.go")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, path := range []string{"src/a.go", "src/b/c.go", "src/b/d.go"} {
		if !m.Match(path) {
			t.Errorf("%q should match nested braces", path)
		}
	}
	if m.Match("src/b.go") {
		t.Fatal("src/b.go should not match")
	}
}

func TestCompileQuestionMark(t *testing.T) {
	m, err := Compile("file?.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Match("file1.txt") {
		t.Fatal("? should match one character")
	}
	if m.Match("file12.txt") || m.Match("file/.txt") {
		t.Fatal("? matches exactly one non-separator character")
	}
}

func TestCompileCaseInsensitive(t *testing.T) {
	m, err := Compile("*.TS")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Match("a.ts") {
		t.Fatal("matching is case-insensitive")
	}
}

func TestCompileEscapesRegexMeta(t *testing.T) {
	m, err := Compile("a+b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Match("a+b.txt") {
		t.Fatal("literal + must match itself")
	}
	if m.Match("aab.txt") || m.Match("axb.txt") {
		t.Fatal("regex metacharacters must be escaped")
	}
}

func TestCompileBareGlobstar(t *testing.T) {
	m, err := Compile("src/**")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Match("src/a.go") || !m.Match("src/deep/b.go") {
		t.Fatal("bare ** should cross separators")
	}
	if m.Match("other/a.go") {
		t.Fatal("prefix is anchored")
	}
}
