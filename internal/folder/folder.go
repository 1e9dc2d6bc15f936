// Package folder supplies config-driven folder types: named sets of default webparts that fill a
// container's portal tabs the first time they are shown.
package folder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"portalkit/internal/config"
	"portalkit/internal/model"
	"portalkit/internal/portal"
)

type Type struct {
	name string
	tabs map[string][]config.PartConfig
}

func NewType(name string, ft config.FolderType) *Type {
	tabs := make(map[string][]config.PartConfig, len(ft.Tabs))
	for tab, parts := range ft.Tabs {
		tabs[strings.ToLower(tab)] = append([]config.PartConfig(nil), parts...)
	}
	return &Type{name: name, tabs: tabs}
}

func (t *Type) Name() string { return t.name }

// Tabs lists the tab ids with default content.
func (t *Type) Tabs() []string {
	out := make([]string, 0, len(t.tabs))
	for tab := range t.tabs {
		out = append(out, tab)
	}
	sort.Strings(out)
	return out
}

// InitializeTab saves the tab's default parts when the page is still empty. Unknown tabs are
// left alone.
func (t *Type) InitializeTab(ctx context.Context, m *portal.Manager, c model.Container, pageID string) error {
	defaults, ok := t.tabs[strings.ToLower(pageID)]
	if !ok || len(defaults) == 0 {
		return nil
	}
	existing, err := m.GetParts(ctx, c.ID, pageID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	parts := make([]model.WebPart, 0, len(defaults))
	for i, d := range defaults {
		f := m.Registry().Lookup(d.Name)
		if f == nil {
			return fmt.Errorf("folder type %s tab %s: %w: %s", t.name, pageID, portal.ErrUnknownFactory, d.Name)
		}
		loc := d.Location
		if loc == "" {
			loc = f.DefaultLocation()
		}
		p := model.WebPart{
			Index:     i + 1,
			Location:  loc,
			Name:      f.Name(),
			Permanent: d.Permanent,
		}
		if len(d.Properties) > 0 {
			p.Properties = make(map[string]string, len(d.Properties))
			for k, v := range d.Properties {
				p.Properties[k] = v
			}
		}
		parts = append(parts, p)
	}
	return m.SaveParts(ctx, c.ID, pageID, parts)
}

// Resolver maps containers to folder types by the container's FolderType name.
type Resolver struct {
	types map[string]*Type
}

func NewResolver(cfg *config.Config) *Resolver {
	r := &Resolver{types: map[string]*Type{}}
	if cfg == nil {
		return r
	}
	for name, ft := range cfg.FolderTypes {
		r.types[strings.ToLower(name)] = NewType(name, ft)
	}
	return r
}

func (r *Resolver) FolderTypeFor(c model.Container) portal.FolderType {
	t, ok := r.types[strings.ToLower(strings.TrimSpace(c.FolderType))]
	if !ok {
		return nil
	}
	return t
}

func (r *Resolver) Type(name string) *Type { return r.types[strings.ToLower(name)] }

var _ portal.FolderTypes = (*Resolver)(nil)
