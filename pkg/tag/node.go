package tag

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/vango-dev/appcore/pkg/state"
)

// ErrIndexOutOfRange is returned by WithChild for an invalid child index.
var ErrIndexOutOfRange = errors.New("tag: child index out of range")

// Command identifies a server-side action a client can invoke through a
// node, together with its arguments.
type Command struct {
	Name string
	Args []any
}

// Node is an immutable UI element.
//
// Children are either *Node values or opaque leaves (strings, numbers,
// template.HTML, fmt.Stringer values). The zero value is not useful; build
// nodes with New or one of the element factories.
type Node struct {
	kind     string
	contents []any
	attrs    map[string]string
	flags    map[string]struct{}
	extras   map[string]any
	binding  Var
	cmd      *Command
}

// New creates a node of the given kind. Content is flattened.
func New(kind string, content ...any) *Node {
	return &Node{
		kind:     kind,
		contents: flatten(nil, content),
	}
}

// Kind returns the element or component type of n.
func (n *Node) Kind() string { return n.kind }

// Len returns the number of children.
func (n *Node) Len() int { return len(n.contents) }

// Child returns the child at index i. It panics if i is out of range,
// like a slice index.
func (n *Node) Child(i int) any { return n.contents[i] }

// Contents returns a copy of the child sequence.
func (n *Node) Contents() []any {
	out := make([]any, len(n.contents))
	copy(out, n.contents)
	return out
}

// Copy returns a structurally independent duplicate of n. The binding,
// command, attributes, flags and extras are all preserved.
func (n *Node) Copy() *Node {
	cp := &Node{
		kind:     n.kind,
		contents: make([]any, len(n.contents)),
		binding:  n.binding,
		cmd:      n.cmd,
	}
	copy(cp.contents, n.contents)

	if len(n.attrs) > 0 {
		cp.attrs = make(map[string]string, len(n.attrs))
		for k, v := range n.attrs {
			cp.attrs[k] = v
		}
	}
	if len(n.flags) > 0 {
		cp.flags = make(map[string]struct{}, len(n.flags))
		for k := range n.flags {
			cp.flags[k] = struct{}{}
		}
	}
	if len(n.extras) > 0 {
		cp.extras = make(map[string]any, len(n.extras))
		for k, v := range n.extras {
			cp.extras[k] = v
		}
	}
	return cp
}

// =============================================================================
// Contents
// =============================================================================

// WithChild returns a copy of n with the child at index i replaced.
// All other children are kept as they are.
func (n *Node) WithChild(i int, child any) (*Node, error) {
	if i < 0 || i >= len(n.contents) {
		return nil, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(n.contents))
	}
	cp := n.Copy()
	cp.contents[i] = child
	return cp, nil
}

// WithContents returns a copy of n whose children are replaced by content.
func (n *Node) WithContents(content ...any) *Node {
	cp := n.Copy()
	cp.contents = flatten(nil, content)
	return cp
}

// Prepend returns a copy of n with content inserted before the existing
// children.
func (n *Node) Prepend(content ...any) *Node {
	cp := n.Copy()
	cp.contents = append(flatten(nil, content), n.contents...)
	return cp
}

// Append returns a copy of n with content added after the existing
// children.
func (n *Node) Append(content ...any) *Node {
	cp := n.Copy()
	cp.contents = flatten(cp.contents, content)
	return cp
}

// =============================================================================
// Attributes
// =============================================================================

// Attr returns the named attribute, or "" when it is not set.
// For "value" on a bound node the bound variable is read instead.
func (n *Node) Attr(name string) string {
	v, _ := n.LookupAttr(name)
	return v
}

// LookupAttr is like Attr but also reports whether the attribute is set.
func (n *Node) LookupAttr(name string) (string, bool) {
	if name == "value" && n.binding != nil {
		return state.ValueOf(n.binding.Get()).String(), true
	}
	v, ok := n.attrs[name]
	return v, ok
}

// WithAttr returns a copy of n with the attribute set.
func (n *Node) WithAttr(name, value string) *Node {
	cp := n.Copy()
	if cp.attrs == nil {
		cp.attrs = make(map[string]string, 1)
	}
	cp.attrs[name] = value
	return cp
}

// WithoutAttr returns a copy of n with the attribute removed.
func (n *Node) WithoutAttr(name string) *Node {
	cp := n.Copy()
	delete(cp.attrs, name)
	return cp
}

// Attrs returns a copy of the attribute map. Bound values are not
// included.
func (n *Node) Attrs() map[string]string {
	out := make(map[string]string, len(n.attrs))
	for k, v := range n.attrs {
		out[k] = v
	}
	return out
}

// Is reports whether the boolean attribute name is present.
func (n *Node) Is(name string) bool {
	_, ok := n.flags[name]
	return ok
}

// WithIs returns a copy of n with the boolean attribute switched on or off.
func (n *Node) WithIs(name string, on bool) *Node {
	cp := n.Copy()
	if on {
		if cp.flags == nil {
			cp.flags = make(map[string]struct{}, 1)
		}
		cp.flags[name] = struct{}{}
	} else {
		delete(cp.flags, name)
	}
	return cp
}

// Flags returns the present boolean attributes in sorted order.
func (n *Node) Flags() []string {
	out := make([]string, 0, len(n.flags))
	for k := range n.flags {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Extra returns out-of-band metadata stored on n. Extras never render.
func (n *Node) Extra(name string) (any, bool) {
	v, ok := n.extras[name]
	return v, ok
}

// WithExtra returns a copy of n with the metadata entry set.
func (n *Node) WithExtra(name string, value any) *Node {
	cp := n.Copy()
	if cp.extras == nil {
		cp.extras = make(map[string]any, 1)
	}
	cp.extras[name] = value
	return cp
}

// =============================================================================
// Binding and commands
// =============================================================================

// Bind returns a copy of n bound to v. The display value is taken from v
// now: checkboxes get the checked flag from the value's truthiness, radio
// buttons are checked when their value attribute equals it, textareas get
// it as their only content and every other node gets a value attribute.
// A nil v removes the binding.
func (n *Node) Bind(v Var) *Node {
	if v == nil {
		cp := n.Copy()
		cp.binding = nil
		return cp
	}

	current := state.ValueOf(v.Get())
	var cp *Node

	switch {
	case n.kind == "input" && strings.EqualFold(n.attrs["type"], "checkbox"):
		cp = n.WithIs("checked", current.Truthy())
	case n.kind == "input" && strings.EqualFold(n.attrs["type"], "radio"):
		own, ok := n.attrs["value"]
		if ok {
			cp = n.WithIs("checked", own == current.String())
		} else {
			cp = n.WithIs("checked", current.Truthy())
		}
	case n.kind == "textarea":
		cp = n.WithContents(current.String())
	default:
		cp = n.WithAttr("value", current.String())
	}

	cp.binding = v
	return cp
}

// Binding returns the bound variable, or nil.
func (n *Node) Binding() Var { return n.binding }

// WithCommand returns a copy of n carrying the named command. An empty
// name clears the command.
func (n *Node) WithCommand(name string, args ...any) *Node {
	cp := n.Copy()
	if name == "" {
		cp.cmd = nil
		return cp
	}
	cmdArgs := make([]any, len(args))
	copy(cmdArgs, args)
	cp.cmd = &Command{Name: name, Args: cmdArgs}
	return cp
}

// Command returns the attached command. The returned value is a copy.
func (n *Node) Command() (Command, bool) {
	if n.cmd == nil {
		return Command{}, false
	}
	args := make([]any, len(n.cmd.Args))
	copy(args, n.cmd.Args)
	return Command{Name: n.cmd.Name, Args: args}, true
}

// String returns a short description for debugging. Use the render
// package to produce markup.
func (n *Node) String() string {
	return fmt.Sprintf("<%s> (%d children)", n.kind, len(n.contents))
}

// =============================================================================
// Flattening
// =============================================================================

// flatten appends the items of content to dst, expanding nested slices
// recursively and dropping nils.
func flatten(dst []any, content []any) []any {
	for _, item := range content {
		dst = flattenOne(dst, item)
	}
	return dst
}

func flattenOne(dst []any, item any) []any {
	switch v := item.(type) {
	case nil:
		return dst
	case *Node:
		if v == nil {
			return dst
		}
		return append(dst, v)
	case string:
		return append(dst, v)
	case []byte:
		return append(dst, string(v))
	case []any:
		return flatten(dst, v)
	case []*Node:
		for _, child := range v {
			if child != nil {
				dst = append(dst, child)
			}
		}
		return dst
	case []string:
		for _, s := range v {
			dst = append(dst, s)
		}
		return dst
	}

	rv := reflect.ValueOf(item)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			dst = flattenOne(dst, rv.Index(i).Interface())
		}
		return dst
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return dst
		}
	}
	return append(dst, item)
}
