package portal

import (
	"strconv"

	"portalkit/internal/model"
	"portalkit/internal/navtree"
)

const (
	MenuCustomize = "Customize"
	MenuMoveUp    = "Move Up"
	MenuMoveDown  = "Move Down"
	MenuRemove    = "Remove"
)

func postScript(href string) string { return "@post('" + href + "')" }

// AdminMenu builds the customize menu of one part. pos and count are the part's position within
// its region and the region's size; they decide which move actions apply.
func (m *Manager) AdminMenu(part model.WebPart, pos, count int, editable bool) *navtree.Tree {
	menu := navtree.New("webpart-" + strconv.FormatInt(part.RowID, 10))
	add := func(text, href string) {
		item := navtree.NewLink(text, href)
		item.Script = postScript(href)
		menu.AddChild(item)
	}
	if editable {
		item := navtree.NewLink(MenuCustomize, m.urls.Customize(part.Container, part.PageID, part.RowID))
		menu.AddChild(item)
	}
	if pos > 0 {
		add(MenuMoveUp, m.urls.Move(part.Container, part.PageID, part.RowID, Up))
	}
	if pos < count-1 {
		add(MenuMoveDown, m.urls.Move(part.Container, part.PageID, part.RowID, Down))
	}
	if !part.Permanent {
		add(MenuRemove, m.urls.Remove(part.Container, part.PageID, part.RowID))
	}
	return menu
}

// AddPartMenu lists the factories that may be added to location, one link each.
func (m *Manager) AddPartMenu(c model.Container, pageID, location string) *navtree.Tree {
	menu := navtree.New("Add Web Part")
	for _, f := range m.registry.AvailableFor(c, location) {
		href := m.urls.Add(c.ID, pageID, f.Name(), location)
		item := navtree.NewLink(f.DisplayName(), href).WithKey(f.Name() + "@" + location)
		item.Script = postScript(href)
		menu.AddChild(item)
	}
	return menu
}

// addPartMenus returns the add menu of every configured region. An empty right region has its
// entries folded into the body menu after a separator.
func (m *Manager) addPartMenus(c model.Container, pageID string, byLoc map[string][]model.WebPart) map[string]*navtree.Tree {
	out := map[string]*navtree.Tree{}
	for _, loc := range m.regions {
		out[loc] = m.AddPartMenu(c, pageID, loc)
	}
	right, hasRight := out[model.LocationRight]
	body, hasBody := out[model.LocationBody]
	if !hasRight || !hasBody || len(byLoc[model.LocationRight]) > 0 {
		return out
	}
	delete(out, model.LocationRight)
	if !right.HasChildren() {
		return out
	}
	if body.HasChildren() {
		body.AddSeparator()
	}
	for _, item := range right.Children() {
		moved := navtree.NewLink(item.Text+" (right)", item.Value).WithKey(item.Key())
		moved.Script = item.Script
		body.AddChild(moved)
	}
	return out
}
