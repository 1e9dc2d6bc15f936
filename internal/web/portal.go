package web

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"portalkit/internal/format"
	"portalkit/internal/model"
	"portalkit/internal/portal"
	"portalkit/internal/view"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"
)

const propFieldPrefix = "prop."

func (s *Server) container(r *http.Request) model.Container {
	return s.containers.Container(chi.URLParam(r, "container"))
}

func pageParam(r *http.Request) string {
	return model.NormalizePageID(chi.URLParam(r, "page"))
}

func rowIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "rowID"), 10, 64)
}

func stackFor(r *http.Request) *view.Stack {
	if st, ok := view.StackFrom(r.Context()); ok {
		return st
	}
	return view.NewStack(nil)
}

func isDatastar(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("Datastar-Request")), "true")
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = format.WriteJSON(w, v, false)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, portal.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, portal.ErrPermanent):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, portal.ErrUnknownFactory):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled):
	default:
		s.requestLogger(r).Error("portal request failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// buildPage lays out the portal page of c. resp may be nil when the page is only used for
// region patches.
func (s *Server) buildPage(r *http.Request, c model.Container, pageID string, resp *view.Response) (*view.Page, error) {
	u := userFrom(r.Context())
	vctx := view.NewContext(stackFor(r), r, resp)
	vctx.Container = &c
	vctx.User = u

	title := c.Path
	if pageID != model.DefaultPageID {
		title += " - " + pageID
	}
	page := view.NewPage(vctx, title, s.mgr.Regions()...)
	page.PageID = pageID
	page.ScriptSrc = s.cfg.DatastarSrc

	canCustomize := s.perms.CanCustomize(u, c)
	if err := s.mgr.PopulatePortalView(r.Context(), vctx, pageID, page, canCustomize); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	c := s.container(r)
	resp := view.NewResponse(w)
	page, err := s.buildPage(r, c, pageParam(r), resp)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := view.Render(stackFor(r), page, resp, r); err != nil && !resp.Committed() {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// regionView renders one region of a laid out page on its own.
type regionView struct {
	page *view.Page
	name string
}

func (v regionView) ViewContext() *view.Context { return v.page.ViewContext() }

func (v regionView) ViewName() string { return "region:" + v.name }

func (v regionView) RenderView(s *view.Stack, w *view.Response, _ *http.Request) error {
	return view.RenderRegion(s, w, v.name, v.page.View(v.name))
}

// afterMutation answers a layout change. Datastar requests get the page's regions patched in
// place; everything else is sent back where it came from.
func (s *Server) afterMutation(w http.ResponseWriter, r *http.Request, c model.Container, pageID string) {
	if !isDatastar(r) {
		redirectBack(w, r, s.mgr.URLs().Page(c.ID, pageID))
		return
	}
	page, err := s.buildPage(r, c, pageID, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st := stackFor(r)
	sse := datastar.NewSSE(w, r)
	for _, name := range page.Regions() {
		var b bytes.Buffer
		if err := view.Render(st, regionView{page: page, name: name}, view.NewWriterResponse(&b), r); err != nil {
			continue
		}
		if err := sse.PatchElements(b.String(),
			datastar.WithSelector("#region-"+name),
			datastar.WithMode(datastar.ElementPatchModeOuter),
		); err != nil {
			return
		}
	}
}

func (s *Server) handlePartsList(w http.ResponseWriter, r *http.Request) {
	c := s.container(r)
	parts, err := s.mgr.GetParts(r.Context(), c.ID, pageParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": parts})
}

// formProps collects "prop.<key>" form fields.
func formProps(r *http.Request) map[string]string {
	var props map[string]string
	for k, vs := range r.Form {
		if !strings.HasPrefix(k, propFieldPrefix) || len(vs) == 0 {
			continue
		}
		key := strings.TrimSpace(strings.TrimPrefix(k, propFieldPrefix))
		if key == "" {
			continue
		}
		if props == nil {
			props = map[string]string{}
		}
		props[key] = vs[0]
	}
	return props
}

func (s *Server) handlePartAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	c := s.container(r)
	pageID := pageParam(r)
	name := strings.TrimSpace(r.Form.Get("name"))
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	index := 0
	if v := strings.TrimSpace(r.Form.Get("index")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid index", http.StatusBadRequest)
			return
		}
		index = n
	}

	part, err := s.mgr.AddPart(r.Context(), c.ID, pageID, name, strings.TrimSpace(r.Form.Get("location")), index, formProps(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, map[string]any{"data": part})
		return
	}
	s.afterMutation(w, r, c, pageID)
}

func (s *Server) handlePartMove(w http.ResponseWriter, r *http.Request) {
	rowID, err := rowIDParam(r)
	if err != nil {
		http.Error(w, "invalid row id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	dir, err := portal.ParseDirection(r.Form.Get("dir"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c := s.container(r)
	pageID := pageParam(r)
	if err := s.mgr.MovePart(r.Context(), c.ID, pageID, rowID, dir); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.afterMutation(w, r, c, pageID)
}

func (s *Server) handlePartRemove(w http.ResponseWriter, r *http.Request) {
	rowID, err := rowIDParam(r)
	if err != nil {
		http.Error(w, "invalid row id", http.StatusBadRequest)
		return
	}
	c := s.container(r)
	pageID := pageParam(r)
	if err := s.mgr.RemovePart(r.Context(), c.ID, pageID, rowID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.afterMutation(w, r, c, pageID)
}

type customizeField struct {
	Key   string
	Value string
}

func (s *Server) handleCustomizeGet(w http.ResponseWriter, r *http.Request) {
	rowID, err := rowIDParam(r)
	if err != nil {
		http.Error(w, "invalid row id", http.StatusBadRequest)
		return
	}
	c := s.container(r)
	pageID := pageParam(r)
	part, err := s.mgr.GetPart(r.Context(), c.ID, pageID, rowID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var fields []customizeField
	for _, k := range part.PropertyKeys() {
		if k == model.PropTitle {
			continue
		}
		fields = append(fields, customizeField{Key: k, Value: part.Properties[k]})
	}
	urls := s.mgr.URLs()
	s.writeHTMLTemplate(w, "customize.html", map[string]any{
		"Part":    part,
		"Title":   part.Properties[model.PropTitle],
		"Fields":  fields,
		"Action":  urls.Customize(c.ID, pageID, rowID),
		"BackURL": urls.Page(c.ID, pageID),
	})
}

// handleCustomizePost replaces the part's properties with the posted ones. Blank values drop
// the property; "new.key"/"new.value" adds one.
func (s *Server) handleCustomizePost(w http.ResponseWriter, r *http.Request) {
	rowID, err := rowIDParam(r)
	if err != nil {
		http.Error(w, "invalid row id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	props := formProps(r)
	if props == nil {
		props = map[string]string{}
	}
	if k := strings.TrimSpace(r.Form.Get("new.key")); k != "" {
		props[k] = r.Form.Get("new.value")
	}
	props[model.PropTitle] = r.Form.Get("title")
	for k, v := range props {
		if strings.TrimSpace(v) == "" {
			delete(props, k)
		}
	}

	c := s.container(r)
	pageID := pageParam(r)
	if err := s.mgr.SetProperties(r.Context(), c.ID, pageID, rowID, props); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, s.mgr.URLs().Page(c.ID, pageID), http.StatusSeeOther)
}

func (s *Server) handlePartView(w http.ResponseWriter, r *http.Request) {
	rowID, err := rowIDParam(r)
	if err != nil {
		http.Error(w, "invalid row id", http.StatusBadRequest)
		return
	}
	c := s.container(r)
	part, err := s.mgr.GetPart(r.Context(), c.ID, pageParam(r), rowID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := view.NewResponse(w)
	vctx := view.NewContext(stackFor(r), r, resp)
	vctx.Container = &c
	vctx.User = userFrom(r.Context())
	v := s.mgr.PartView(r.Context(), vctx, part)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.Render(stackFor(r), v, resp, r); err != nil && !resp.Committed() {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// handlePartMenu returns the customize menu of a part as JSON. ?path= selects a subtree.
func (s *Server) handlePartMenu(w http.ResponseWriter, r *http.Request) {
	rowID, err := rowIDParam(r)
	if err != nil {
		http.Error(w, "invalid row id", http.StatusBadRequest)
		return
	}
	c := s.container(r)
	parts, err := s.mgr.GetParts(r.Context(), c.ID, pageParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	region, pos := regionPosition(parts, rowID)
	if pos < 0 {
		s.writeError(w, r, portal.NotFoundError{Kind: "webpart", ID: strconv.FormatInt(rowID, 10)})
		return
	}
	part := region[pos]
	f := s.mgr.Registry().Lookup(part.Name)
	menu := s.mgr.AdminMenu(part, pos, len(region), f != nil && f.IsEditable())

	if p := strings.TrimSpace(r.URL.Query().Get("path")); p != "" {
		sub := menu.FindSubtree(p)
		if sub == nil {
			http.Error(w, "menu path not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, sub)
		return
	}
	writeJSON(w, http.StatusOK, menu)
}

// regionPosition finds rowID within its region. pos is -1 when the row is missing.
func regionPosition(parts []model.WebPart, rowID int64) (region []model.WebPart, pos int) {
	byLoc := portal.PartsByLocation(parts)
	locs := make([]string, 0, len(byLoc))
	for loc := range byLoc {
		locs = append(locs, loc)
	}
	sort.Strings(locs)
	for _, loc := range locs {
		for i, p := range byLoc[loc] {
			if p.RowID == rowID {
				return byLoc[loc], i
			}
		}
	}
	return nil, -1
}
