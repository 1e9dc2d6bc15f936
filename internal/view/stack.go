package view

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// ErrEmptyStack is returned when the stack is peeked or popped with no entries. It means a
// Push/Pop imbalance somewhere in the render chain.
var ErrEmptyStack = errors.New("view: empty stack")

// Entry binds a view to the request and response that were active when it was pushed.
type Entry struct {
	View     View
	Request  *http.Request
	Response *Response
}

// Stack records which view is rendering. One Stack belongs to one request; it is passed
// explicitly down the render chain and carried in the request context for handlers.
type Stack struct {
	entries []Entry
	log     *zap.Logger
}

func NewStack(log *zap.Logger) *Stack {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stack{log: log}
}

func (s *Stack) Logger() *zap.Logger { return s.log }

func (s *Stack) Push(v View, r *http.Request, w *Response) {
	s.entries = append(s.entries, Entry{View: v, Request: r, Response: w})
}

func (s *Stack) Pop() (Entry, error) {
	if len(s.entries) == 0 {
		return Entry{}, ErrEmptyStack
	}
	top := s.entries[len(s.entries)-1]
	s.entries[len(s.entries)-1] = Entry{}
	s.entries = s.entries[:len(s.entries)-1]
	return top, nil
}

func (s *Stack) Peek() (Entry, error) {
	if len(s.entries) == 0 {
		return Entry{}, ErrEmptyStack
	}
	return s.entries[len(s.entries)-1], nil
}

func (s *Stack) Size() int { return len(s.entries) }

// ResetSize drops entries above n. Request boundaries call it so a render that escaped
// through a panic cannot leak frames into later lookups.
func (s *Stack) ResetSize(n int) {
	if n < 0 {
		n = 0
	}
	for len(s.entries) > n {
		s.entries[len(s.entries)-1] = Entry{}
		s.entries = s.entries[:len(s.entries)-1]
	}
}

func (s *Stack) CurrentView() (View, error) {
	e, err := s.Peek()
	return e.View, err
}

func (s *Stack) CurrentRequest() (*http.Request, error) {
	e, err := s.Peek()
	return e.Request, err
}

func (s *Stack) CurrentResponse() (*Response, error) {
	e, err := s.Peek()
	return e.Response, err
}

// CurrentContext returns the context of the top view. It is nil when that view carries none.
func (s *Stack) CurrentContext() (*Context, error) {
	e, err := s.Peek()
	if err != nil {
		return nil, err
	}
	return contextOf(e.View), nil
}

// RootContext returns the context of the first pushed view.
func (s *Stack) RootContext() (*Context, error) {
	if len(s.entries) == 0 {
		return nil, ErrEmptyStack
	}
	return contextOf(s.entries[0].View), nil
}

// TopViewContext returns the nearest context walking down from the top, or nil.
func (s *Stack) TopViewContext() *Context {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if c := contextOf(s.entries[i].View); c != nil {
			return c
		}
	}
	return nil
}

func contextOf(v View) *Context {
	if cv, ok := v.(ContextView); ok {
		return cv.ViewContext()
	}
	return nil
}

type stackKey struct{}

func WithStack(ctx context.Context, s *Stack) context.Context {
	return context.WithValue(ctx, stackKey{}, s)
}

func StackFrom(ctx context.Context) (*Stack, bool) {
	s, ok := ctx.Value(stackKey{}).(*Stack)
	return s, ok && s != nil
}
