package session

import "strings"

// Expand substitutes {{name}} and {name} placeholders in template with
// values from the store. Unknown variables expand to the empty string.
//
// Expansion is single-pass: substituted text is never re-scanned, so a
// value containing braces cannot inject further templates. Values stored as
// JSON-quoted strings are unwrapped.
//
// Single-brace placeholders are only recognized when the text between the
// braces is a plain identifier. This keeps JSON object literals inside body
// values intact while still supporting URL path and legacy header templates.
func (s *Store) Expand(template string) string {
	if !strings.ContainsRune(template, '{') {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); {
		c := template[i]
		if c != '{' {
			b.WriteByte(c)
			i++
			continue
		}

		// Double-brace form.
		if i+1 < len(template) && template[i+1] == '{' {
			if end := strings.Index(template[i+2:], "}}"); end >= 0 {
				name := template[i+2 : i+2+end]
				if isIdentifier(name) {
					b.WriteString(s.resolve(name))
					i += end + 4
					continue
				}
			}
			// Not a well-formed placeholder; emit one brace and rescan from
			// the second so "{{{x}}}" still finds the inner template.
			b.WriteByte('{')
			i++
			continue
		}

		// Single-brace form.
		if end := strings.IndexByte(template[i+1:], '}'); end >= 0 {
			name := template[i+1 : i+1+end]
			if isIdentifier(name) {
				b.WriteString(s.resolve(name))
				i += end + 2
				continue
			}
		}
		b.WriteByte('{')
		i++
	}

	return b.String()
}

// resolve looks up name and unwraps JSON string quoting.
func (s *Store) resolve(name string) string {
	v, ok := s.values[name]
	if !ok {
		return ""
	}
	return unquote(v)
}

// isIdentifier reports whether name consists solely of letters, digits and
// underscores, with at least one character.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}
