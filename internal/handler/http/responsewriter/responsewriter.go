// Package responsewriter wraps http.ResponseWriter so middleware can observe
// the status code and body size a handler produced. The access log, tracing
// middleware, and request metrics all read from the same wrapper.
package responsewriter

import "net/http"

// ResponseWriter records the status code and byte count of a response.
type ResponseWriter struct {
	http.ResponseWriter
	status       int
	bytesWritten int
	wroteHeader  bool
}

// Wrap returns a recording wrapper around w. The status defaults to 200, the
// implicit status net/http uses when a handler writes without WriteHeader.
func Wrap(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader records the first status code; later calls are dropped rather
// than triggering net/http's superfluous-WriteHeader log noise.
func (w *ResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *ResponseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytesWritten += n
	return n, err
}

// StatusCode returns the status sent to the client.
func (w *ResponseWriter) StatusCode() int { return w.status }

// BytesWritten returns how many body bytes reached the client.
func (w *ResponseWriter) BytesWritten() int { return w.bytesWritten }

// Flush forwards to the underlying writer when it supports streaming.
func (w *ResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		if !w.wroteHeader {
			w.WriteHeader(http.StatusOK)
		}
		f.Flush()
	}
}

// Unwrap exposes the underlying writer for http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
