package session

import "testing"

func TestExpand(t *testing.T) {
	s := NewStore(nil)
	s.Set("name", "Ada")
	s.Set("incident_id", "XYZ")
	s.Set("quoted", `"abc"`)
	s.Set("tricky", "{{name}}")

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"plain text", "hello world", "hello world"},
		{"double brace", "hello {{name}}", "hello Ada"},
		{"single brace", "/incidents/{incident_id}/attachments", "/incidents/XYZ/attachments"},
		{"both forms", "{name} is {{name}}", "Ada is Ada"},
		{"unknown double", "hi {{nobody}}!", "hi !"},
		{"unknown single", "hi {nobody}!", "hi !"},
		{"json quoted value unwrapped", "token={{quoted}}", "token=abc"},
		{"no re-expansion", "{{tricky}}", "{{name}}"},
		{"json literal untouched", `{"a": 1}`, `{"a": 1}`},
		{"json with template inside", `{"id": "{{incident_id}}"}`, `{"id": "XYZ"}`},
		{"unterminated double", "{{name", "{{name"},
		{"unterminated single", "{name", "{name"},
		{"empty braces", "{}", "{}"},
		{"dotted name not a placeholder", "{{a.b}}", "{{a.b}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Expand(tt.template); got != tt.expected {
				t.Errorf("Expand(%q) = %q, want %q", tt.template, got, tt.expected)
			}
		})
	}
}

// Expansion must be idempotent for templates whose values contain no brace
// literals: a second pass finds nothing left to substitute.
func TestExpand_Idempotent(t *testing.T) {
	s := NewStore(nil)
	s.Set("a", "1")
	s.Set("b", "two")

	templates := []string{
		"x {{a}} y {b} z",
		"{{missing}} and {gone}",
		"plain",
	}
	for _, tpl := range templates {
		once := s.Expand(tpl)
		twice := s.Expand(once)
		if once != twice {
			t.Errorf("Expand not idempotent for %q: %q != %q", tpl, once, twice)
		}
	}
}
