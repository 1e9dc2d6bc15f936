package view

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portalkit/internal/model"
	"portalkit/internal/navtree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedStack() (*Stack, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewStack(zap.New(core)), logs
}

func TestRender_PopsOnSuccessAndFailure(t *testing.T) {
	s, _ := observedStack()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := NewWriterResponse(&bytes.Buffer{})

	require.NoError(t, Render(s, HTMLView{HTML: "ok"}, w, r))
	assert.Equal(t, 0, s.Size())

	boom := errors.New("boom")
	err := Render(s, ViewFunc(func(*Stack, *Response, *http.Request) error { return boom }), w, r)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Size())
}

func TestRender_PopsWhenViewPanics(t *testing.T) {
	s := NewStack(nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := NewWriterResponse(&bytes.Buffer{})

	func() {
		defer func() { _ = recover() }()
		_ = Render(s, ViewFunc(func(*Stack, *Response, *http.Request) error { panic("bad") }), w, r)
	}()
	assert.Equal(t, 0, s.Size())
}

func TestRender_NestedIncludesSeeEnclosingContext(t *testing.T) {
	s := NewStack(nil)
	r := httptest.NewRequest(http.MethodGet, "/portal/c1", nil)
	var out bytes.Buffer
	w := NewWriterResponse(&out)

	outerCtx := NewContext(s, r, w)
	outerCtx.Container = &model.Container{ID: "c1"}
	innerCtx := &Context{}

	var depthInside int
	inner := &ctxView{ctx: innerCtx, fn: func(s *Stack, w *Response) error {
		depthInside = s.Size()
		cur, err := s.CurrentContext()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "[%s]", cur.ContainerID())
		return err
	}}
	outer := &ctxView{ctx: outerCtx, fn: func(s *Stack, w *Response) error {
		return Include(s, inner, w)
	}}

	require.NoError(t, Render(s, outer, w, r))
	assert.Equal(t, "[c1]", out.String())
	assert.Equal(t, 2, depthInside)
	assert.Same(t, outerCtx, innerCtx.Parent())
	assert.Same(t, r, innerCtx.Request)
	assert.Equal(t, 0, s.Size())
}

func TestRender_FlushesCommittedOutputAndLogsOnce(t *testing.T) {
	s, logs := observedStack()
	rec := httptest.NewRecorder()
	w := NewResponse(rec)
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	boom := errors.New("boom")
	failing := ViewFunc(func(s *Stack, w *Response, _ *http.Request) error {
		_, _ = w.WriteString("partial")
		return boom
	})
	outer := NewVBox(failing)

	err := Render(s, outer, w, r)
	require.ErrorIs(t, err, boom)
	assert.True(t, rec.Flushed, "committed output should be flushed")
	assert.Equal(t, "partial", rec.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("render failed").Len(), "error is logged by the innermost render only")
}

func TestRender_IgnorableErrorsAreNotLogged(t *testing.T) {
	s, logs := observedStack()
	w := NewWriterResponse(&bytes.Buffer{})
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	err := Render(s, ViewFunc(func(*Stack, *Response, *http.Request) error {
		return fmt.Errorf("client gone: %w", ErrIgnorable)
	}), w, r)
	require.Error(t, err)
	assert.Equal(t, 0, logs.Len())
}

func TestIncludeOnEmptyStackFails(t *testing.T) {
	s := NewStack(nil)
	err := Include(s, HTMLView{}, NewWriterResponse(&bytes.Buffer{}))
	assert.ErrorIs(t, err, ErrEmptyStack)
}

func TestVBox_SkipsEmptyAndSeparatesRendered(t *testing.T) {
	s := NewStack(nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	var out bytes.Buffer
	w := NewWriterResponse(&out)

	box := NewVBox()
	assert.False(t, box.IsVisible())
	box.AddView(nil)
	assert.False(t, box.IsVisible(), "nil views are ignored")

	box.AddSlot(None())
	box.AddSlot(None())
	assert.False(t, box.IsVisible(), "empty slots are not content")
	assert.Equal(t, 2, box.Len())

	box.AddView(HTMLView{HTML: "a"})
	box.AddSlot(None())
	box.AddView(HTMLView{HTML: "b"})
	box.Separator = "|"

	assert.True(t, box.IsVisible())
	assert.Equal(t, 5, box.Len())
	assert.Len(t, box.Views(), 2)

	require.NoError(t, Render(s, box, w, r))
	assert.Equal(t, "a|b", out.String())
}

func TestFrame_SubstitutesErrorViewOnBodyFailure(t *testing.T) {
	s, logs := observedStack()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	var out bytes.Buffer
	w := NewWriterResponse(&out)

	box := NewVBox(
		&Frame{Title: "Broken", RowID: 7, Body: ViewFunc(func(_ *Stack, w *Response, _ *http.Request) error {
			_, _ = w.WriteString("half-written")
			return errors.New("db down")
		})},
		&Frame{Title: "Fine", RowID: 8, Body: HTMLView{HTML: "<p>hello</p>"}},
	)
	require.NoError(t, Render(s, box, w, r))

	html := out.String()
	assert.NotContains(t, html, "half-written")
	assert.Contains(t, html, `id="webpart_7"`)
	assert.Contains(t, html, UnexpectedErrorMessage)
	assert.Contains(t, html, "<p>hello</p>")
	require.Equal(t, 1, logs.Len(), "a failing body is logged once")
	entry := logs.All()[0]
	assert.Equal(t, "render failed", entry.Message)
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, 0, s.Size())
}

func TestFrame_RendersMenu(t *testing.T) {
	s := NewStack(nil)
	menu := navtree.New("Customize")
	menu.AddLink("Move Down", "/down")

	var out bytes.Buffer
	f := &Frame{Title: "Wiki", RowID: 3, Location: "body", Menu: menu, Body: TextView{Text: "<x>"}}
	require.NoError(t, Render(s, f, NewWriterResponse(&out), httptest.NewRequest(http.MethodGet, "/", nil)))

	html := out.String()
	assert.Contains(t, html, `data-location="body"`)
	assert.Contains(t, html, `<a href="/down">Move Down</a>`)
	assert.Contains(t, html, "&lt;x&gt;")
}

func TestPage_RendersRegionsInOrder(t *testing.T) {
	s := NewStack(nil)
	r := httptest.NewRequest(http.MethodGet, "/portal/c1", nil)
	ctx := NewContext(s, r, nil)
	ctx.Container = &model.Container{ID: "c1"}

	page := NewPage(ctx, "Home", model.LocationBody, model.LocationRight)
	page.SetView(model.LocationRight, HTMLView{HTML: "R"})
	page.SetView(model.LocationBody, NewVBox(HTMLView{HTML: "B"}))
	page.SetView("footer", NewVBox())

	rec := httptest.NewRecorder()
	require.NoError(t, Render(s, page, NewResponse(rec), r))

	html := rec.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Less(t, strings.Index(html, ">B<"), strings.Index(html, ">R<"))
	assert.Contains(t, html, `data-container="c1"`)
	assert.Contains(t, html, `id="region-footer"`)
	assert.Equal(t, []string{"body", "right", "footer"}, page.Regions())
}
