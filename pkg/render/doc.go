// Package render turns tag trees into HTML.
//
// It handles everything needed to produce valid, safe markup:
//
//   - HTML5 element rendering with void elements
//   - Text and attribute escaping
//   - Boolean attributes rendered bare (checked, disabled, ...)
//   - Bound nodes rendered with the variable's current value
//   - Commands rendered as data-cmd / data-args attributes
//   - Full documents with DOCTYPE, head and body
//
// # Basic Usage
//
//	renderer := render.NewRenderer(render.Config{})
//	html, err := renderer.RenderToString(node)
//
// Leaves of type template.HTML are written without escaping and should
// only hold trusted content. Node extras are never rendered.
package render
