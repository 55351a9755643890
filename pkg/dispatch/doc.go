// Package dispatch defines the contract between the request pipeline and
// the code that resolves a request to a handler result, plus Router, a
// chi-backed implementation of it.
//
// A Dispatcher never panics or returns a bare error to the pipeline: it
// reports one of three outcomes as a Result value.
//
//	Found    - a handler ran; Value holds its return value and Service
//	           tells whether it is a raw API response or a view model.
//	NotFound - no handler matched. The pipeline falls back to other
//	           strategies.
//	Error    - a handler was found but dispatching it failed.
package dispatch
