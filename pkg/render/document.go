package render

import (
	"fmt"
	"io"
)

// Document contains everything needed to render a complete HTML page.
type Document struct {
	// Title is the page title.
	Title string

	// Lang is the language attribute for the html element.
	// Defaults to "en" if not specified.
	Lang string

	// Meta holds name/content meta tags.
	Meta map[string]string

	// StyleSheets contains paths to external stylesheets.
	StyleSheets []string

	// Scripts contains paths to deferred scripts, written at the end of
	// the body.
	Scripts []string

	// Header is rendered before Body, Footer after it. Either may be nil.
	Header any
	Body   any
	Footer any
}

// RenderDocument renders a complete HTML document to w.
func (r *Renderer) RenderDocument(w io.Writer, doc Document) error {
	lang := doc.Lang
	if lang == "" {
		lang = "en"
	}

	if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"%s\">\n", escapeAttr(lang)); err != nil {
		return err
	}

	if err := r.renderHead(w, doc); err != nil {
		return err
	}

	if _, err := io.WriteString(w, "<body>\n"); err != nil {
		return err
	}
	for _, part := range []any{doc.Header, doc.Body, doc.Footer} {
		if err := r.RenderToWriter(w, part); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	for _, src := range doc.Scripts {
		if _, err := fmt.Fprintf(w, "<script defer src=\"%s\"></script>\n", escapeAttr(src)); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}

func (r *Renderer) renderHead(w io.Writer, doc Document) error {
	if _, err := io.WriteString(w, "<head>\n<meta charset=\"utf-8\">\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n"); err != nil {
		return err
	}

	for _, name := range sortedKeys(doc.Meta) {
		if _, err := fmt.Fprintf(w, "<meta name=\"%s\" content=\"%s\">\n", escapeAttr(name), escapeAttr(doc.Meta[name])); err != nil {
			return err
		}
	}

	if doc.Title != "" {
		if _, err := fmt.Fprintf(w, "<title>%s</title>\n", escapeHTML(doc.Title)); err != nil {
			return err
		}
	}

	for _, href := range doc.StyleSheets {
		if _, err := fmt.Fprintf(w, "<link rel=\"stylesheet\" href=\"%s\">\n", escapeAttr(href)); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "</head>\n")
	return err
}
