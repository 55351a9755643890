package page

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/vango-dev/appcore/pkg/resource"
	"github.com/vango-dev/appcore/pkg/view"
)

// Builder assembles page models from templates.
type Builder struct {
	resources resource.Loader
	engine    view.Engine
	logger    *slog.Logger
}

// NewBuilder creates a builder. A nil logger uses slog.Default().
func NewBuilder(resources resource.Loader, engine view.Engine, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{resources: resources, engine: engine, logger: logger}
}

// Exists reports whether the template file exists.
func (b *Builder) Exists(ctx context.Context, filename string) bool {
	return b.resources != nil && b.resources.Exists(ctx, filename)
}

// Build loads filename, applies its directives and renders the rest of it
// against the model and result. The returned model holds the result, the
// directive flags and the rendered content. Unknown directives are logged
// and otherwise ignored.
func (b *Builder) Build(ctx context.Context, filename string, result any) (Model, error) {
	source, err := b.resources.Content(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("page: load %s: %w", filename, err)
	}

	model := Model{KeyResult: result}

	if d, body, ok := splitDirectives(source); ok {
		for name, on := range d.Flags {
			model[name] = on
		}
		for _, token := range d.Unknown {
			b.logger.Warn("unknown directive", "directive", token, "file", filename)
		}
		source = body
	}

	content, err := b.engine.Render(ctx, source, model, result)
	if err != nil {
		return nil, fmt.Errorf("page: render %s: %w", filename, err)
	}
	model[KeyContent] = template.HTML(content)
	return model, nil
}
