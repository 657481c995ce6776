package tee

import (
	"net/http"
	"time"
)

// ResponseSaver is a wrapper around http.ResponseWriter that remembers what was
// written through it: the status code, the number of body bytes and the time
// the response was started.
type ResponseSaver struct {
	rw           http.ResponseWriter
	status       int
	bytes        int
	wroteHeaders bool
	CreatedAt    time.Time
}

// Implementation of http.ResponseWriter
func (t *ResponseSaver) Header() http.Header {
	return t.rw.Header()
}

// Implementation of http.ResponseWriter
func (t *ResponseSaver) WriteHeader(statusCode int) {
	if t.wroteHeaders {
		return
	}
	// remember that we wrote the headers
	t.wroteHeaders = true
	// set the status code so we can return it later
	t.status = statusCode
	t.rw.WriteHeader(statusCode)
}

// Implementation of http.ResponseWriter
func (t *ResponseSaver) Write(b []byte) (int, error) {
	// write headers if not already written
	if !t.wroteHeaders {
		t.WriteHeader(http.StatusOK)
	}
	n, err := t.rw.Write(b)
	t.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (t *ResponseSaver) Unwrap() http.ResponseWriter {
	return t.rw
}

// StatusCode returns the status code of the response.
// It is http.StatusOK if the handler wrote nothing.
func (t *ResponseSaver) StatusCode() int {
	if !t.wroteHeaders {
		return http.StatusOK
	}
	return t.status
}

// BytesWritten returns the number of body bytes written.
func (t *ResponseSaver) BytesWritten() int {
	return t.bytes
}

// Duration returns the time elapsed since the saver was created.
func (t *ResponseSaver) Duration() time.Duration {
	return time.Since(t.CreatedAt)
}

// NewResponseSaver returns a new ResponseSaver writing through to w.
func NewResponseSaver(w http.ResponseWriter) *ResponseSaver {
	return &ResponseSaver{
		CreatedAt: time.Now(),
		rw:        w,
	}
}
