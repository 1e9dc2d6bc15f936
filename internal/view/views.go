package view

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"portalkit/internal/navtree"
)

//go:embed templates/*.html
var templatesFS embed.FS

var chrome = template.Must(template.New("chrome").Funcs(template.FuncMap{
	"trim": strings.TrimSpace,
}).ParseFS(templatesFS, "templates/*.html"))

// UnexpectedErrorMessage is what a failed webpart shows instead of its content.
const UnexpectedErrorMessage = "An unexpected error occurred"

func executeChrome(w *Response, name string, data any) error {
	var b bytes.Buffer
	if err := chrome.ExecuteTemplate(&b, name, data); err != nil {
		return err
	}
	_, err := w.Write(b.Bytes())
	return err
}

// HTMLView writes trusted markup as is.
type HTMLView struct {
	HTML template.HTML
}

func (v HTMLView) RenderView(_ *Stack, w *Response, _ *http.Request) error {
	_, err := w.WriteString(string(v.HTML))
	return err
}

func (v HTMLView) ViewName() string { return "html" }

// TextView writes escaped text.
type TextView struct {
	Text string
}

func (v TextView) RenderView(_ *Stack, w *Response, _ *http.Request) error {
	_, err := w.WriteString(template.HTMLEscapeString(v.Text))
	return err
}

// TemplateView executes a named html/template. Output is buffered so a failing template
// writes nothing.
type TemplateView struct {
	Template *template.Template
	Name     string
	Data     any
}

func (v TemplateView) RenderView(_ *Stack, w *Response, _ *http.Request) error {
	var b bytes.Buffer
	if err := v.Template.ExecuteTemplate(&b, v.Name, v.Data); err != nil {
		return err
	}
	_, err := w.Write(b.Bytes())
	return err
}

func (v TemplateView) ViewName() string { return "template:" + v.Name }

// ErrorView stands in for a webpart that could not be built or rendered. Menu keeps the
// customize actions reachable so a broken part can still be removed.
type ErrorView struct {
	Title string
	RowID int64
	Menu  *navtree.Tree
}

func (v ErrorView) RenderView(_ *Stack, w *Response, _ *http.Request) error {
	var menu template.HTML
	if v.Menu != nil && v.Menu.HasChildren() {
		var b bytes.Buffer
		if err := v.Menu.RenderHTML(&b, "webpart-menu"); err != nil {
			return err
		}
		menu = template.HTML(b.String())
	}
	return executeChrome(w, "webpart_error", map[string]any{
		"Title":   v.Title,
		"RowID":   v.RowID,
		"Menu":    menu,
		"Message": UnexpectedErrorMessage,
	})
}

func (v ErrorView) ViewName() string { return "error" }

// MenuView renders a NavTree as a nested list, e.g. the add-webpart control of a region.
type MenuView struct {
	Menu     *navtree.Tree
	Location string
}

func (v MenuView) IsVisible() bool { return v.Menu != nil && v.Menu.HasChildren() }

func (v MenuView) RenderView(_ *Stack, w *Response, _ *http.Request) error {
	if !v.IsVisible() {
		return nil
	}
	var b bytes.Buffer
	if err := v.Menu.RenderHTML(&b, "menu"); err != nil {
		return err
	}
	return executeChrome(w, "add_webpart", map[string]any{
		"Location": v.Location,
		"Menu":     template.HTML(b.String()),
	})
}

func (v MenuView) ViewName() string { return "menu:" + v.Location }
