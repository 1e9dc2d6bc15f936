package view

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"portalkit/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxView struct {
	ctx *Context
	fn  func(s *Stack, w *Response) error
}

func (v *ctxView) ViewContext() *Context { return v.ctx }

func (v *ctxView) RenderView(s *Stack, w *Response, _ *http.Request) error {
	if v.fn == nil {
		return nil
	}
	return v.fn(s, w)
}

func TestStack_EmptyPeekAndPop(t *testing.T) {
	s := NewStack(nil)
	if _, err := s.Pop(); !errors.Is(err, ErrEmptyStack) {
		t.Fatalf("expected ErrEmptyStack from Pop, got %v", err)
	}
	if _, err := s.CurrentView(); !errors.Is(err, ErrEmptyStack) {
		t.Fatalf("expected ErrEmptyStack from CurrentView, got %v", err)
	}
	if _, err := s.CurrentContext(); !errors.Is(err, ErrEmptyStack) {
		t.Fatalf("expected ErrEmptyStack from CurrentContext, got %v", err)
	}
	if _, err := s.RootContext(); !errors.Is(err, ErrEmptyStack) {
		t.Fatalf("expected ErrEmptyStack from RootContext, got %v", err)
	}
	if s.TopViewContext() != nil {
		t.Fatalf("expected no top context on empty stack")
	}
}

func TestStack_BalancedPushPopEndsEmpty(t *testing.T) {
	s := NewStack(nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := NewWriterResponse(&discard{})

	sequences := [][]bool{
		{true, false},
		{true, true, false, true, false, false},
		{true, true, true, false, false, false},
	}
	for _, seq := range sequences {
		for _, push := range seq {
			if push {
				s.Push(HTMLView{}, r, w)
				continue
			}
			_, err := s.Pop()
			require.NoError(t, err)
		}
		require.Equal(t, 0, s.Size())
	}
}

func TestStack_RootAndTopContexts(t *testing.T) {
	s := NewStack(nil)
	r := httptest.NewRequest(http.MethodGet, "/portal/c1", nil)
	w := NewWriterResponse(&discard{})

	root := &ctxView{ctx: &Context{Container: &model.Container{ID: "c1"}}}
	plain := HTMLView{}
	s.Push(root, r, w)
	s.Push(plain, r, w)

	top := s.TopViewContext()
	require.NotNil(t, top)
	assert.Equal(t, "c1", top.ContainerID())

	cur, err := s.CurrentContext()
	require.NoError(t, err)
	assert.Nil(t, cur, "plain views carry no context")

	rc, err := s.RootContext()
	require.NoError(t, err)
	assert.Same(t, root.ctx, rc)

	cr, err := s.CurrentRequest()
	require.NoError(t, err)
	assert.Same(t, r, cr)
}

func TestStack_ResetSize(t *testing.T) {
	s := NewStack(nil)
	for i := 0; i < 4; i++ {
		s.Push(HTMLView{}, nil, nil)
	}
	s.ResetSize(1)
	assert.Equal(t, 1, s.Size())
	s.ResetSize(5)
	assert.Equal(t, 1, s.Size())
	s.ResetSize(-1)
	assert.Equal(t, 0, s.Size())
}

func TestStackFromContext(t *testing.T) {
	s := NewStack(nil)
	ctx := WithStack(context.Background(), s)
	got, ok := StackFrom(ctx)
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = StackFrom(context.Background())
	assert.False(t, ok)
}

func TestNewContext_InheritsFromEnclosing(t *testing.T) {
	s := NewStack(nil)
	r := httptest.NewRequest(http.MethodGet, "/portal/c1?x=1", nil)
	outer := NewContext(s, r, nil)
	outer.Container = &model.Container{ID: "c1"}
	outer.User = model.User{Name: "alice"}
	s.Push(&ctxView{ctx: outer}, r, nil)

	inner := NewContext(s, nil, nil)
	assert.Same(t, outer, inner.Parent())
	assert.Equal(t, "c1", inner.ContainerID())
	assert.Equal(t, "alice", inner.User.Name)
	require.NotNil(t, inner.URL)
	assert.Equal(t, "/portal/c1", inner.URL.Path)
}

func TestContext_CopyDetachesProperties(t *testing.T) {
	c := NewContext(nil, httptest.NewRequest(http.MethodGet, "/a", nil), nil)
	c.Set("k", "v")
	c.ContextualRoles = []string{"reader"}

	cp := c.Copy()
	cp.Set("k", "changed")
	cp.ContextualRoles[0] = "admin"
	cp.URL.Path = "/b"

	assert.Equal(t, "v", c.GetString("k"))
	assert.True(t, c.HasContextualRole("reader"))
	assert.Equal(t, "/a", c.URL.Path)
	assert.Equal(t, []string{"k"}, cp.Keys())
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
