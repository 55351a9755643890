package page

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/vango-dev/appcore/pkg/render"
	"github.com/vango-dev/appcore/pkg/resource"
	"github.com/vango-dev/appcore/pkg/tag"
	"github.com/vango-dev/appcore/pkg/view"
)

// LayoutTemplate is the resource consulted for the site layout.
const LayoutTemplate = "page.html"

// Layout wraps page content into a complete document.
//
// When the resources contain page.html it is rendered with the model,
// where content is the page's HTML. Otherwise a built-in document is
// produced: a navigation bar unless navbar is false, the content in a
// main element, and a footer unless footer is false.
type Layout struct {
	Resources resource.Loader
	Engine    view.Engine
	Renderer  *render.Renderer

	Title       string
	Lang        string
	StyleSheets []string
	Scripts     []string

	// Nav is the navigation bar of the built-in layout.
	Nav *tag.Node
}

// Render produces the response body for model. Embedded models produce
// only the content fragment.
func (l *Layout) Render(ctx context.Context, model Model, result any) (string, error) {
	r := l.renderer()

	content, err := Content(r, model)
	if err != nil {
		return "", err
	}
	if model.Embedded() {
		return string(content), nil
	}

	if l.Resources != nil && l.Engine != nil && l.Resources.Exists(ctx, LayoutTemplate) {
		source, err := l.Resources.Content(ctx, LayoutTemplate)
		if err != nil {
			return "", fmt.Errorf("page: load layout: %w", err)
		}
		data := make(map[string]any, len(model)+1)
		for k, v := range model {
			data[k] = v
		}
		data[KeyContent] = content
		html, err := l.Engine.Render(ctx, source, data, result)
		if err != nil {
			return "", fmt.Errorf("page: render layout: %w", err)
		}
		return html, nil
	}

	doc := render.Document{
		Title:       l.Title,
		Lang:        l.Lang,
		StyleSheets: l.StyleSheets,
		Scripts:     l.Scripts,
		Body:        tag.New("main", content),
	}
	if title, ok := model[KeyTitle].(string); ok && title != "" {
		doc.Title = title
	}
	if model.Flag(KeyNavbar, true) {
		doc.Header = l.nav()
	}
	if model.Flag(KeyFooter, true) {
		doc.Footer = tag.New("footer")
	}

	var buf bytes.Buffer
	if err := r.RenderDocument(&buf, doc); err != nil {
		return "", fmt.Errorf("page: render document: %w", err)
	}
	return buf.String(), nil
}

// Content returns the page content of model as HTML. Rendered template
// output is used as is; any other content (a tag tree or a plain value
// from Minimal) is rendered.
func Content(r *render.Renderer, model Model) (template.HTML, error) {
	switch c := model[KeyContent].(type) {
	case nil:
		return "", nil
	case template.HTML:
		return c, nil
	default:
		html, err := r.RenderToString(c)
		if err != nil {
			return "", fmt.Errorf("page: render content: %w", err)
		}
		return template.HTML(html), nil
	}
}

func (l *Layout) renderer() *render.Renderer {
	if l.Renderer != nil {
		return l.Renderer
	}
	return render.NewRenderer(render.Config{})
}

func (l *Layout) nav() *tag.Node {
	if l.Nav != nil {
		return l.Nav
	}
	return tag.New("nav", tag.A("Home").WithAttr("href", "/"))
}
