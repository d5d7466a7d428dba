// internal/command/parser_test.go
package command

import "testing"

func TestParseDirective(t *testing.T) {
	p := NewParser()

	cases := []struct {
		input     string
		directive string
		ok        bool
	}{
		{"*it starts raining*", "it starts raining", true},
		{"  *a dragon lands*  ", "a dragon lands", true},
		{"*x*", "x", true},
		{"*almost a command", "", false},
		{"almost a command*", "", false},
		{"no markers at all", "", false},
		{"a *starred* word mid-sentence", "", false},
		{"**", "", false},
		{"*", "", false},
		{"* *", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		directive, ok := p.Parse(tc.input)
		if ok != tc.ok {
			t.Errorf("Parse(%q) ok = %v, want %v", tc.input, ok, tc.ok)
		}
		if directive != tc.directive {
			t.Errorf("Parse(%q) directive = %q, want %q", tc.input, directive, tc.directive)
		}
	}
}

func TestParseCustomMarker(t *testing.T) {
	p := NewParserWithMarker('~')

	if d, ok := p.Parse("~night falls~"); !ok || d != "night falls" {
		t.Errorf("expected directive, got %q ok=%v", d, ok)
	}
	if _, ok := p.Parse("*night falls*"); ok {
		t.Error("default marker should not be recognized by custom parser")
	}
}
