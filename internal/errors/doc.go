// Package errors provides structured, actionable errors for the appcore
// command line tool.
//
// Errors carry a code from a registry, a category, an optional source
// location and a hint:
//
//	err := errors.New("E150").
//	    WithLocation("templates/dynamic/users.html", 3, 0).
//	    WithSuggestion("Close every {{if}} with {{end}}")
//
//	fmt.Print(err.Format())
//	// ERROR E150: Template parse error
//	//
//	//   templates/dynamic/users.html:3
//	//
//	//       2 │ <ul>
//	//   →   3 │ {{if .users}}
//	//       4 │ </ul>
//	//
//	//   Hint: Close every {{if}} with {{end}}
//
// # Error Codes
//
//   - E1xx: configuration and project files
//   - E15x: templates
//   - E17x: server startup
package errors
