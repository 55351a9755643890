package tag

// Element factories. Each one is New with a fixed kind.

func Div(content ...any) *Node      { return New("div", content...) }
func Span(content ...any) *Node     { return New("span", content...) }
func P(content ...any) *Node        { return New("p", content...) }
func A(content ...any) *Node        { return New("a", content...) }
func H1(content ...any) *Node       { return New("h1", content...) }
func H2(content ...any) *Node       { return New("h2", content...) }
func H3(content ...any) *Node       { return New("h3", content...) }
func Ul(content ...any) *Node       { return New("ul", content...) }
func Li(content ...any) *Node       { return New("li", content...) }
func Form(content ...any) *Node     { return New("form", content...) }
func Input(content ...any) *Node    { return New("input", content...) }
func Button(content ...any) *Node   { return New("button", content...) }
func Textarea(content ...any) *Node { return New("textarea", content...) }
func Select(content ...any) *Node   { return New("select", content...) }
func Option(content ...any) *Node   { return New("option", content...) }
func Label(content ...any) *Node    { return New("label", content...) }
func Table(content ...any) *Node    { return New("table", content...) }
func Tr(content ...any) *Node       { return New("tr", content...) }
func Td(content ...any) *Node       { return New("td", content...) }
func Th(content ...any) *Node       { return New("th", content...) }

// Checkbox returns a checkbox input.
func Checkbox() *Node { return Input().WithAttr("type", "checkbox") }

// TextInput returns a text input with the given name.
func TextInput(name string) *Node {
	return Input().WithAttr("type", "text").WithAttr("name", name)
}
