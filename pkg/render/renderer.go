package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"reflect"
	"sort"

	"github.com/vango-dev/appcore/pkg/state"
	"github.com/vango-dev/appcore/pkg/tag"
)

// Config configures the HTML renderer.
type Config struct {
	// Pretty enables indented output.
	// Should only be used in development as it increases output size.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces if not specified.
	Indent string
}

// Renderer renders tag trees to HTML. It holds no per-render state and is
// safe for concurrent use.
type Renderer struct {
	config Config
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config Config) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

var defaultRenderer = NewRenderer(Config{})

// RenderToString renders content with the default configuration.
func RenderToString(content any) (string, error) {
	return defaultRenderer.RenderToString(content)
}

// RenderToString renders content (a node, a leaf or a slice of either)
// to an HTML string.
func (r *Renderer) RenderToString(content any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, content); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams content to w.
func (r *Renderer) RenderToWriter(w io.Writer, content any) error {
	return r.renderContent(w, content, 0)
}

// renderContent dispatches on the content type.
func (r *Renderer) renderContent(w io.Writer, content any, depth int) error {
	switch v := content.(type) {
	case nil:
		return nil
	case *tag.Node:
		if v == nil {
			return nil
		}
		return r.renderNode(w, v, depth)
	case template.HTML:
		_, err := io.WriteString(w, string(v))
		return err
	case string:
		_, err := io.WriteString(w, escapeHTML(v))
		return err
	case state.Value:
		_, err := io.WriteString(w, escapeHTML(v.String()))
		return err
	case []any:
		for _, item := range v {
			if err := r.renderContent(w, item, depth); err != nil {
				return err
			}
		}
		return nil
	case []*tag.Node:
		for _, item := range v {
			if err := r.renderContent(w, item, depth); err != nil {
				return err
			}
		}
		return nil
	case fmt.Stringer:
		_, err := io.WriteString(w, escapeHTML(v.String()))
		return err
	}

	rv := reflect.ValueOf(content)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		for i := 0; i < rv.Len(); i++ {
			if err := r.renderContent(w, rv.Index(i).Interface(), depth); err != nil {
				return err
			}
		}
		return nil
	}

	_, err := io.WriteString(w, escapeHTML(state.ValueOf(content).String()))
	return err
}

// renderNode renders an element with its attributes and children.
// A node with an empty kind is a fragment: only its children render.
func (r *Renderer) renderNode(w io.Writer, node *tag.Node, depth int) error {
	if v := node.Binding(); v != nil {
		// Re-derive the display from the variable's current value.
		node = node.Bind(v)
	}

	kind := node.Kind()
	if kind == "" {
		for _, child := range node.Contents() {
			if err := r.renderContent(w, child, depth); err != nil {
				return err
			}
		}
		return nil
	}
	if !validName(kind) {
		return fmt.Errorf("render: invalid element name %q", kind)
	}

	if r.config.Pretty && depth > 0 {
		r.writeIndent(w, depth)
	}

	if _, err := fmt.Fprintf(w, "<%s", kind); err != nil {
		return err
	}
	if err := r.renderAttributes(w, node); err != nil {
		return err
	}
	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}

	if isVoidElement(kind) {
		if r.config.Pretty {
			io.WriteString(w, "\n")
		}
		return nil
	}

	children := node.Contents()
	hasBlockChildren := len(children) > 0 && !isInlineElement(kind)
	if r.config.Pretty && hasBlockChildren {
		io.WriteString(w, "\n")
	}

	for _, child := range children {
		if err := r.renderContent(w, child, depth+1); err != nil {
			return err
		}
	}

	if r.config.Pretty && hasBlockChildren {
		r.writeIndent(w, depth)
	}

	if _, err := fmt.Fprintf(w, "</%s>", kind); err != nil {
		return err
	}
	if r.config.Pretty {
		io.WriteString(w, "\n")
	}
	return nil
}

// renderAttributes writes value attributes, flags and the command in
// sorted order so the output is deterministic.
func (r *Renderer) renderAttributes(w io.Writer, node *tag.Node) error {
	attrs := node.Attrs()
	flags := node.Flags()

	for _, name := range flags {
		delete(attrs, name)
	}

	if cmd, ok := node.Command(); ok {
		args := cmd.Args
		if args == nil {
			args = []any{}
		}
		data, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("render: encode args of command %q: %w", cmd.Name, err)
		}
		attrs["data-cmd"] = cmd.Name
		attrs["data-args"] = string(data)
	}

	keys := make([]string, 0, len(attrs)+len(flags))
	for name := range attrs {
		keys = append(keys, name)
	}
	keys = append(keys, flags...)
	sort.Strings(keys)

	for _, name := range keys {
		if !validName(name) {
			return fmt.Errorf("render: invalid attribute name %q on <%s>", name, node.Kind())
		}
		value, ok := attrs[name]
		if !ok {
			if _, err := fmt.Fprintf(w, " %s", name); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, ` %s="%s"`, name, escapeAttr(value)); err != nil {
			return err
		}
	}
	return nil
}

// writeIndent writes indentation for pretty printing.
func (r *Renderer) writeIndent(w io.Writer, depth int) {
	for i := 0; i < depth; i++ {
		io.WriteString(w, r.config.Indent)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
