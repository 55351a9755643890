package render

import "strings"

// escapeHTML escapes text for inclusion in element content.
func escapeHTML(s string) string {
	return escape(s, false)
}

// escapeAttr escapes text for inclusion in a double-quoted attribute
// value. Whitespace control characters are escaped too.
func escapeAttr(s string) string {
	return escape(s, true)
}

func escape(s string, attr bool) string {
	if !strings.ContainsAny(s, "&<>\"'\n\r\t") {
		return s
	}

	var buf strings.Builder
	buf.Grow(len(s) + 8)

	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		case '\n', '\r', '\t':
			if attr {
				buf.WriteString("&#")
				buf.WriteString(charRef[r])
				buf.WriteByte(';')
			} else {
				buf.WriteRune(r)
			}
		default:
			buf.WriteRune(r)
		}
	}

	return buf.String()
}

var charRef = map[rune]string{'\n': "10", '\r': "13", '\t': "9"}

// validName reports whether s can be written as an element or attribute
// name without breaking the surrounding markup.
func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r <= ' ', r == '"', r == '\'', r == '>', r == '<', r == '/', r == '=', r == '`', r == 0x7f:
			return false
		}
	}
	return true
}
