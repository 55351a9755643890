package page

import (
	"regexp"
	"strings"
)

// Model keys with a fixed meaning.
const (
	KeyResult   = "result"
	KeyContent  = "content"
	KeyEmbedded = "embedded"
	KeyNavbar   = "navbar"
	KeyFooter   = "footer"
	KeyTitle    = "title"
)

// Model is the render model of a page.
type Model map[string]any

// Flag returns the boolean stored under key, or def when there is none.
func (m Model) Flag(key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

// Embedded reports whether only the content fragment should be produced.
func (m Model) Embedded() bool { return m.Flag(KeyEmbedded, false) }

// TemplateName returns the template path of a dynamic page.
func TemplateName(resourceName string) string {
	return "dynamic/" + resourceName + ".html"
}

// Minimal returns the model used when a handler produced a result but no
// page template exists.
func Minimal(result any) Model {
	return Model{
		KeyResult:  result,
		KeyContent: result,
		KeyNavbar:  true,
	}
}

var directivePattern = regexp.MustCompile(`^\s*<!--\s+([\w+\-, ]+)\s+-->\s*$`)

// Directives is the parsed content of a directive line.
type Directives struct {
	Flags   map[string]bool
	Unknown []string
}

// ParseDirectives parses a template's first line. It reports false when
// the line is not a directive line.
func ParseDirectives(line string) (Directives, bool) {
	m := directivePattern.FindStringSubmatch(line)
	if m == nil {
		return Directives{}, false
	}

	d := Directives{Flags: make(map[string]bool)}
	for _, token := range strings.Split(m[1], ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		switch {
		case strings.HasPrefix(token, "+"):
			d.Flags[token[1:]] = true
		case strings.HasPrefix(token, "-"):
			d.Flags[token[1:]] = false
		default:
			d.Unknown = append(d.Unknown, token)
		}
	}
	return d, true
}

// splitDirectives separates a leading directive line from the template
// body. Templates of a single line never carry directives.
func splitDirectives(source string) (Directives, string, bool) {
	first, rest, ok := strings.Cut(source, "\n")
	if !ok {
		return Directives{}, source, false
	}
	d, ok := ParseDirectives(first)
	if !ok {
		return Directives{}, source, false
	}
	return d, rest, true
}
