// Package exchange holds the per-request context shared by every stage of
// the dispatch pipeline: parameters, UI locals, validation errors, the
// redirect target and the parsed client event.
//
// An Exchange is created at request start and discarded at request end.
// It is not safe for concurrent use.
package exchange
