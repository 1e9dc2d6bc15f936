package view

import (
	"net/http"
)

// Page is a page template with named regions. Regions render in the order they were declared;
// a region whose view is missing or invisible still gets its (empty) container element.
type Page struct {
	Title  string
	PageID string

	// ScriptSrc, when set, is loaded as a module script (the datastar client).
	ScriptSrc string
	// Stylesheet defaults to /static/portal.css.
	Stylesheet string

	ctx     *Context
	order   []string
	regions map[string]View
}

func NewPage(ctx *Context, title string, regions ...string) *Page {
	p := &Page{Title: title, ctx: ctx, regions: map[string]View{}}
	for _, r := range regions {
		p.declare(r)
	}
	return p
}

func (p *Page) declare(region string) {
	if _, ok := p.regions[region]; ok {
		return
	}
	p.regions[region] = nil
	p.order = append(p.order, region)
}

func (p *Page) ViewContext() *Context { return p.ctx }

func (p *Page) ViewName() string { return "page:" + p.PageID }

func (p *Page) Regions() []string { return append([]string(nil), p.order...) }

// SetView places v in region, declaring the region if needed.
func (p *Page) SetView(region string, v View) {
	p.declare(region)
	p.regions[region] = v
}

func (p *Page) View(region string) View { return p.regions[region] }

func (p *Page) RenderView(s *Stack, w *Response, _ *http.Request) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	css := p.Stylesheet
	if css == "" {
		css = "/static/portal.css"
	}
	if err := executeChrome(w, "page_head", map[string]any{
		"Title":      p.Title,
		"Container":  p.ctx.ContainerID(),
		"PageID":     p.PageID,
		"ScriptSrc":  p.ScriptSrc,
		"Stylesheet": css,
	}); err != nil {
		return err
	}
	for _, name := range p.order {
		if err := RenderRegion(s, w, name, p.regions[name]); err != nil {
			return err
		}
	}
	return executeChrome(w, "page_foot", nil)
}

// RenderRegion writes one region element and its content. Live updates re-render a single
// region through this too.
func RenderRegion(s *Stack, w *Response, name string, v View) error {
	if err := executeChrome(w, "region_open", name); err != nil {
		return err
	}
	if IsVisible(v) {
		if err := Include(s, v, w); err != nil {
			return err
		}
	}
	return executeChrome(w, "region_close", name)
}
