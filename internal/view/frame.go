package view

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"portalkit/internal/navtree"
)

// Frame is the chrome around one webpart: title bar, optional customize menu, and the body.
// The body renders into a buffer first; when it fails, an ErrorView takes its place so the
// rest of the page is unaffected.
type Frame struct {
	Title    string
	RowID    int64
	Location string
	Menu     *navtree.Tree
	Body     View
}

func (f *Frame) ViewName() string { return "webpart:" + strconv.FormatInt(f.RowID, 10) }

func (f *Frame) RenderView(s *Stack, w *Response, r *http.Request) error {
	var body bytes.Buffer
	if err := Render(s, f.Body, newBufferResponse(w, &body), r); err != nil {
		if errors.Is(err, ErrEmptyStack) || IsIgnorable(err) {
			return err
		}
		// Render has already logged err.
		return Include(s, ErrorView{Title: f.Title, RowID: f.RowID, Menu: f.Menu}, w)
	}

	var menu template.HTML
	if f.Menu != nil && f.Menu.HasChildren() {
		var b bytes.Buffer
		if err := f.Menu.RenderHTML(&b, "webpart-menu"); err != nil {
			return err
		}
		menu = template.HTML(b.String())
	}
	return executeChrome(w, "webpart", map[string]any{
		"Title":    f.Title,
		"RowID":    f.RowID,
		"Location": f.Location,
		"Menu":     menu,
		"Body":     template.HTML(body.String()),
	})
}
