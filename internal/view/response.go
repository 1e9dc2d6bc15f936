package view

import (
	"bytes"
	"io"
	"net/http"
)

// Response is the render target. It remembers whether any output has been written, which
// decides how a failed render is finished off.
type Response struct {
	w       io.Writer
	hw      http.ResponseWriter
	header  http.Header
	written int64
}

func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w, hw: w}
}

// NewWriterResponse renders into any writer, e.g. a buffer or a CLI's stdout.
func NewWriterResponse(w io.Writer) *Response {
	return &Response{w: w}
}

func newBufferResponse(parent *Response, buf *bytes.Buffer) *Response {
	r := &Response{w: buf}
	if parent != nil {
		r.header = parent.Header()
	}
	return r
}

func (r *Response) Write(p []byte) (int, error) {
	n, err := r.w.Write(p)
	r.written += int64(n)
	return n, err
}

func (r *Response) WriteString(s string) (int, error) {
	return r.Write([]byte(s))
}

func (r *Response) Header() http.Header {
	if r.hw != nil {
		return r.hw.Header()
	}
	if r.header == nil {
		r.header = http.Header{}
	}
	return r.header
}

// Committed reports whether output has reached the underlying writer.
func (r *Response) Committed() bool { return r.written > 0 }

func (r *Response) Written() int64 { return r.written }

// Flush pushes buffered output to the client when the writer supports it.
func (r *Response) Flush() {
	if f, ok := r.w.(http.Flusher); ok {
		f.Flush()
	}
}
