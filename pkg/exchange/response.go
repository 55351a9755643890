package exchange

import (
	"encoding/json"
	"io"
	"net/http"
)

// Content types written by the response helpers.
const (
	ContentTypeJSON = "application/json; charset=utf-8"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// ResponseWriter returns the underlying response writer.
func (x *Exchange) ResponseWriter() http.ResponseWriter { return x.w }

// StartResponse sets the status code sent with the first write.
func (x *Exchange) StartResponse(code int) { x.status = code }

// Status returns the response status.
func (x *Exchange) Status() int { return x.status }

// JSON marks the response as JSON.
func (x *Exchange) JSON() { x.contentType = ContentTypeJSON }

// HTML marks the response as HTML.
func (x *Exchange) HTML() { x.contentType = ContentTypeHTML }

// ContentType returns the content type set so far.
func (x *Exchange) ContentType() string { return x.contentType }

// Written reports whether the response header has been sent.
func (x *Exchange) Written() bool { return x.written }

// MarkWritten records that a collaborator wrote the response directly
// through ResponseWriter.
func (x *Exchange) MarkWritten() { x.written = true }

// WriteJSON encodes v as the JSON response body.
func (x *Exchange) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	x.JSON()
	x.writeHeader()
	_, err = x.w.Write(append(data, '\n'))
	return err
}

// WriteHTML writes s as the HTML response body.
func (x *Exchange) WriteHTML(s string) error {
	x.HTML()
	x.writeHeader()
	_, err := io.WriteString(x.w, s)
	return err
}

func (x *Exchange) writeHeader() {
	if x.written {
		return
	}
	if x.contentType != "" {
		x.w.Header().Set("Content-Type", x.contentType)
	}
	x.w.WriteHeader(x.status)
	x.written = true
}
