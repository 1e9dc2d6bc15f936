package portal

import (
	"context"
	"strings"

	"portalkit/internal/model"
	"portalkit/internal/navtree"
	"portalkit/internal/view"

	"go.uber.org/zap"
)

// PopulatePortalView fills the regions of page with the parts of pageID in vctx's container.
// Each part becomes a view.Frame appended to its region. With canCustomize, frames carry an
// admin menu and every configured region gets an add-webpart menu.
//
// A part whose type is unknown, or whose factory returns no view, is left out. A factory error
// or panic puts an error placeholder in the part's slot; the rest of the page still renders.
func (m *Manager) PopulatePortalView(ctx context.Context, vctx *view.Context, pageID string, page *view.Page, canCustomize bool) error {
	if vctx == nil || vctx.Container == nil {
		return ErrNoContainer
	}
	c := *vctx.Container
	pageID = model.NormalizePageID(pageID)
	log := m.log.With(zap.String("container", c.ID), zap.String("page", pageID))

	parts, err := m.GetParts(ctx, c.ID, pageID)
	if err != nil {
		return err
	}
	if len(parts) == 0 && pageID != model.DefaultPageID && m.folders != nil {
		if ft := m.folders.FolderTypeFor(c); ft != nil {
			if err := ft.InitializeTab(ctx, m, c, pageID); err != nil {
				log.Warn("folder type tab init failed", zap.String("folder_type", ft.Name()), zap.Error(err))
			} else if parts, err = m.GetParts(ctx, c.ID, pageID); err != nil {
				return err
			}
		}
	}

	byLoc := PartsByLocation(parts)
	for _, loc := range regionOrder(parts, byLoc) {
		region := byLoc[loc]
		for pos, part := range region {
			var menu *navtree.Tree
			if canCustomize {
				f := m.registry.Lookup(part.Name)
				menu = m.AdminMenu(part, pos, len(region), f != nil && f.IsEditable())
			}
			v, ok := m.partView(ctx, vctx, part, menu, log)
			if !ok {
				continue
			}
			addToRegion(page, loc, v)
		}
	}

	if canCustomize {
		menus := m.addPartMenus(c, pageID, byLoc)
		for _, loc := range m.regions {
			menu, ok := menus[loc]
			if !ok || !menu.HasChildren() {
				continue
			}
			addToRegion(page, loc, view.MenuView{Menu: menu, Location: loc})
		}
	}
	return nil
}

// PartView builds the framed view of a single part for standalone rendering. Unlike region
// population, an unknown type yields the error placeholder.
func (m *Manager) PartView(ctx context.Context, vctx *view.Context, part model.WebPart) view.View {
	f := m.registry.Lookup(part.Name)
	if f == nil {
		m.log.Warn("unknown webpart type",
			zap.Int64("part.row_id", part.RowID),
			zap.String("part.name", part.Name),
		)
		return view.ErrorView{Title: part.Title(), RowID: part.RowID}
	}
	v, ok := m.partView(ctx, vctx, part, nil, m.log)
	if !ok {
		return view.ErrorView{Title: m.partTitle(f, part), RowID: part.RowID}
	}
	return v
}

func (m *Manager) partTitle(f Factory, part model.WebPart) string {
	if t := strings.TrimSpace(part.Properties[model.PropTitle]); t != "" {
		return t
	}
	if f != nil {
		return f.DisplayName()
	}
	return part.Name
}

// partView reports false when the part should be left out of its region.
func (m *Manager) partView(ctx context.Context, vctx *view.Context, part model.WebPart, menu *navtree.Tree, log *zap.Logger) (view.View, bool) {
	f := m.registry.Lookup(part.Name)
	if f == nil {
		log.Warn("unknown webpart type", zap.Int64("part.row_id", part.RowID), zap.String("part.name", part.Name))
		return nil, false
	}
	title := m.partTitle(f, part)
	body, err := buildView(ctx, f, vctx, part)
	if err != nil {
		log.Error("webpart factory failed",
			zap.Int64("part.row_id", part.RowID),
			zap.String("part.name", part.Name),
			zap.Error(err),
		)
		return view.ErrorView{Title: title, RowID: part.RowID, Menu: menu}, true
	}
	if body == nil {
		return nil, false
	}
	return &view.Frame{
		Title:    title,
		RowID:    part.RowID,
		Location: part.Location,
		Menu:     menu,
		Body:     body,
	}, true
}

// addToRegion appends v to the composite held by region, creating it or wrapping a lone view
// as needed.
func addToRegion(page *view.Page, region string, v view.View) {
	switch cur := page.View(region).(type) {
	case nil:
		page.SetView(region, view.NewVBox(v))
	case *view.VBox:
		cur.AddView(v)
	default:
		page.SetView(region, view.NewVBox(cur, v))
	}
}

// regionOrder lists the regions holding parts in order of their first part.
func regionOrder(parts []model.WebPart, byLoc map[string][]model.WebPart) []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range parts {
		if _, ok := byLoc[p.Location]; !ok || seen[p.Location] {
			continue
		}
		seen[p.Location] = true
		out = append(out, p.Location)
	}
	return out
}
