// Package tag provides the immutable UI tree used to build page content.
//
// A Node is a value: every method that changes something returns a new
// Node and leaves the receiver untouched, so a tree built once can be
// shared by any number of concurrent requests without locking.
//
// # Building Trees
//
// Content passed to New, Append, Prepend and WithContents is flattened:
// nested slices become one ordered child sequence and nil values are
// dropped.
//
//	list := tag.Ul(
//	    tag.Li("one"),
//	    []any{tag.Li("two"), tag.Li("three")},
//	)
//	list.Len() // 3
//
// # Attributes
//
//	btn := tag.Button("Save").
//	    WithAttr("class", "primary").
//	    WithIs("disabled", true).
//	    WithCommand("save", 42)
//
// # Binding
//
// Bind attaches a two-way variable. The bound node shows the variable's
// value as of bind time, and Attr("value") reads through to the variable.
//
//	name := tag.NewVar("ann")
//	field := tag.Input().WithAttr("type", "text").Bind(name)
//	field.Attr("value") // "ann"
package tag
