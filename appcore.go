// Package appcore is the request dispatch and page rendering core of a
// server-side interactive web application.
//
// An App answers each request in a fixed order: static files, services,
// client events, views, generic screens and finally template-backed
// pages. Client events are posted forms carrying the event name in
// _event, its arguments as a JSON array in _args, the page's input values
// as a JSON object in _inputs and the opaque page state in _state. They
// are answered with JSON:
//
//	{"!errors": [...]}                       validation failed
//	{"_redirect_": "/next"}                  the handler asked to navigate
//	{"_sel_": {"body": "..."}, "_state_": ""} the re-rendered page fragment
//
// Usage:
//
//	app := appcore.New(appcore.Config{TemplateDir: "templates"})
//	app.Router().View("/users/{id}", showUser)
//	app.Router().On("/users/{id}", "save", saveUser)
//	http.ListenAndServe(":8080", app)
package appcore
