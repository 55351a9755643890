// Package page builds the render model of a dynamic page and wraps
// rendered content in the site layout.
//
// A page template may start with a directive line that toggles boolean
// model flags:
//
//	<!-- +navbar, -footer -->
//	<div>...</div>
//
// "+name" sets name to true, "-name" sets it to false. A bare "+" or "-"
// sets the empty-named flag. The directive line
// is removed before the template is rendered.
package page
