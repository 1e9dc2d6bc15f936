package folder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"portalkit/internal/config"
	"portalkit/internal/model"
	"portalkit/internal/portal"
	"portalkit/internal/store"
	"portalkit/internal/webparts"
)

func newManager(t *testing.T) *portal.Manager {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "p.sqlite"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	reg, err := webparts.Defaults()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	m, err := portal.NewManager(portal.Options{Store: s, Registry: reg})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestInitializeTab_SavesDefaults(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	r := NewResolver(config.Default())
	c := model.Container{ID: "home", FolderType: "Collaboration"}

	ft := r.FolderTypeFor(c)
	if ft == nil {
		t.Fatalf("expected folder type for %q", c.FolderType)
	}
	if err := ft.InitializeTab(ctx, m, c, "Wiki"); err != nil {
		t.Fatalf("init: %v", err)
	}
	parts, err := m.GetParts(ctx, "home", "Wiki")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 default parts, got %d", len(parts))
	}
	if parts[0].Name != webparts.WikiName || !parts[0].Permanent || parts[0].Index != 1 {
		t.Fatalf("unexpected first part: %#v", parts[0])
	}
	if parts[1].Location != model.LocationRight {
		t.Fatalf("expected links on the right, got %q", parts[1].Location)
	}

	// A second call leaves the page alone.
	if err := ft.InitializeTab(ctx, m, c, "Wiki"); err != nil {
		t.Fatalf("init again: %v", err)
	}
	parts, _ = m.GetParts(ctx, "home", "Wiki")
	if len(parts) != 2 {
		t.Fatalf("expected init to be idempotent, got %d parts", len(parts))
	}
}

func TestInitializeTab_UnknownTabAndFactory(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	typ := NewType("custom", config.FolderType{Tabs: map[string][]config.PartConfig{
		"broken": {{Name: "NoSuchPart"}},
	}})
	c := model.Container{ID: "c1"}

	if err := typ.InitializeTab(ctx, m, c, "elsewhere"); err != nil {
		t.Fatalf("unknown tab should be a no-op, got %v", err)
	}
	err := typ.InitializeTab(ctx, m, c, "broken")
	if !errors.Is(err, portal.ErrUnknownFactory) {
		t.Fatalf("expected ErrUnknownFactory, got %v", err)
	}
	if got := typ.Tabs(); len(got) != 1 || got[0] != "broken" {
		t.Fatalf("unexpected tabs: %v", got)
	}
}

func TestResolver_NoFolderType(t *testing.T) {
	r := NewResolver(nil)
	if ft := r.FolderTypeFor(model.Container{ID: "x", FolderType: "missing"}); ft != nil {
		t.Fatalf("expected nil folder type, got %v", ft)
	}
}
