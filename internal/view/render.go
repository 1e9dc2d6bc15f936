package view

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"

	"go.uber.org/zap"
)

// ErrIgnorable tags errors that end a render without being worth a log line, such as a client
// that went away mid-response.
var ErrIgnorable = errors.New("view: ignorable")

// View writes output for one node of the view tree.
type View interface {
	RenderView(s *Stack, w *Response, r *http.Request) error
}

// ContextView is implemented by views that carry their own Context.
type ContextView interface {
	ViewContext() *Context
}

// Visibility lets a view opt out of rendering (and of its surrounding chrome).
type Visibility interface {
	IsVisible() bool
}

// ViewFunc adapts a function to View.
type ViewFunc func(s *Stack, w *Response, r *http.Request) error

func (f ViewFunc) RenderView(s *Stack, w *Response, r *http.Request) error { return f(s, w, r) }

func IsIgnorable(err error) bool {
	return errors.Is(err, ErrIgnorable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, http.ErrAbortHandler) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}

func IsVisible(v View) bool {
	if v == nil {
		return false
	}
	if vv, ok := v.(Visibility); ok {
		return vv.IsVisible()
	}
	return true
}

// loggedError marks an error already reported by an inner Render so enclosing frames do not
// log it again while it propagates.
type loggedError struct{ err error }

func (e loggedError) Error() string { return e.err.Error() }
func (e loggedError) Unwrap() error { return e.err }

// Render runs v with the stack protocol: push, initialise the view's context from the
// enclosing one, render, and always pop. When rendering fails after output was committed the
// partial output is flushed, since the status can no longer change. The error is logged unless
// ignorable and returned to the caller.
func Render(s *Stack, v View, w *Response, r *http.Request) (err error) {
	if v == nil {
		return nil
	}
	enclosing := s.TopViewContext()
	s.Push(v, r, w)
	defer func() {
		if _, perr := s.Pop(); perr != nil && err == nil {
			err = perr
		}
	}()

	if vc := contextOf(v); vc != nil {
		vc.attach(enclosing)
		if vc.Response == nil {
			vc.Response = w
		}
		if vc.Request == nil {
			vc.Request = r
		}
	}

	err = v.RenderView(s, w, r)
	if err == nil {
		return nil
	}
	if w.Committed() {
		w.Flush()
	}
	var logged loggedError
	if errors.As(err, &logged) || IsIgnorable(err) {
		return err
	}
	s.Logger().Error("render failed",
		zap.String("view", Name(v)),
		zap.Int("depth", s.Size()),
		zap.Bool("committed", w.Committed()),
		zap.Error(err),
	)
	return loggedError{err: err}
}

// Include renders child nested under the view currently on top of the stack.
func Include(s *Stack, child View, w *Response) error {
	r, err := s.CurrentRequest()
	if err != nil {
		return err
	}
	return Render(s, child, w, r)
}

// Named is implemented by views that want a readable name in logs.
type Named interface {
	ViewName() string
}

func Name(v View) string {
	if n, ok := v.(Named); ok {
		return n.ViewName()
	}
	return fmt.Sprintf("%T", v)
}
