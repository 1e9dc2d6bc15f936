package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"portalkit/internal/model"
	"portalkit/internal/portal"
	"portalkit/internal/view"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), DefaultFileName), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insertParts(t *testing.T, s *Store, parts ...model.WebPart) []model.WebPart {
	t.Helper()
	out := make([]model.WebPart, len(parts))
	copy(out, parts)
	err := s.InTx(context.Background(), func(tx portal.PartTx) error {
		for i := range out {
			if err := tx.InsertPart(context.Background(), &out[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return out
}

func TestStore_InsertAndSelect(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inserted := insertParts(t, s,
		model.WebPart{Container: "c1", PageID: "p", Index: 2, Location: "right", Name: "Links", Properties: map[string]string{"link.1.text": "Home"}},
		model.WebPart{Container: "c1", PageID: "p", Index: 1, Location: "body", Name: "Wiki", Permanent: true},
		model.WebPart{Container: "c1", PageID: "other", Index: 1, Location: "body", Name: "Wiki"},
	)
	if inserted[0].RowID == 0 || inserted[1].RowID == 0 || inserted[0].RowID == inserted[1].RowID {
		t.Fatalf("expected distinct row ids, got %d and %d", inserted[0].RowID, inserted[1].RowID)
	}

	got, err := s.SelectParts(ctx, "c1", "p")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(got))
	}
	if got[0].Name != "Wiki" || got[1].Name != "Links" {
		t.Fatalf("expected index order Wiki, Links; got %s, %s", got[0].Name, got[1].Name)
	}
	if !got[0].Permanent {
		t.Fatalf("expected permanent flag to round-trip")
	}
	if got[1].Properties["link.1.text"] != "Home" {
		t.Fatalf("expected properties to round-trip, got %#v", got[1].Properties)
	}
	if got[0].Properties != nil {
		t.Fatalf("expected nil properties for empty map, got %#v", got[0].Properties)
	}

	pages, err := s.Pages(ctx, "c1")
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	if len(pages) != 2 || pages[0] != "other" || pages[1] != "p" {
		t.Fatalf("unexpected pages: %v", pages)
	}
}

func TestStore_UpdatePartsPermutesIndexes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	parts := insertParts(t, s,
		model.WebPart{Container: "c1", PageID: "p", Index: 1, Location: "body", Name: "A"},
		model.WebPart{Container: "c1", PageID: "p", Index: 2, Location: "body", Name: "B"},
		model.WebPart{Container: "c1", PageID: "p", Index: 3, Location: "body", Name: "C"},
	)
	parts[0].Index, parts[1].Index, parts[2].Index = 3, 1, 2

	err := s.InTx(ctx, func(tx portal.PartTx) error { return tx.UpdateParts(ctx, parts) })
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.SelectParts(ctx, "c1", "p")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got[0].Name != "B" || got[1].Name != "C" || got[2].Name != "A" {
		t.Fatalf("unexpected order: %s %s %s", got[0].Name, got[1].Name, got[2].Name)
	}
}

func TestStore_UniqueViolationIsConflictAndRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	insertParts(t, s, model.WebPart{Container: "c1", PageID: "p", Index: 1, Location: "body", Name: "A"})

	err := s.InTx(ctx, func(tx portal.PartTx) error {
		if err := tx.InsertPart(ctx, &model.WebPart{Container: "c1", PageID: "p", Index: 2, Location: "body", Name: "B"}); err != nil {
			return err
		}
		return tx.InsertPart(ctx, &model.WebPart{Container: "c1", PageID: "p", Index: 1, Location: "body", Name: "C"})
	})
	if !errors.Is(err, portal.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	got, err := s.SelectParts(ctx, "c1", "p")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected rollback to leave 1 row, got %d", len(got))
	}
}

func TestStore_UpdateMissingRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	err := s.InTx(ctx, func(tx portal.PartTx) error {
		return tx.UpdateParts(ctx, []model.WebPart{{RowID: 42, Container: "c1", PageID: "p", Index: 1}})
	})
	var nf portal.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestStore_DeleteContainer(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	insertParts(t, s,
		model.WebPart{Container: "c1", PageID: "a", Index: 1, Location: "body", Name: "A"},
		model.WebPart{Container: "c1", PageID: "b", Index: 1, Location: "body", Name: "A"},
		model.WebPart{Container: "c2", PageID: "a", Index: 1, Location: "body", Name: "A"},
	)
	if err := s.DeleteContainer(ctx, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, page := range []string{"a", "b"} {
		got, err := s.SelectParts(ctx, "c1", page)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected c1/%s to be empty, got %d rows", page, len(got))
		}
	}
	got, _ := s.SelectParts(ctx, "c2", "a")
	if len(got) != 1 {
		t.Fatalf("expected c2 to keep its row")
	}
}

func TestStore_ReopenKeepsRowsAndInstanceID(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	s, err := Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id1, err := s.InstanceID(ctx)
	if err != nil || id1 == "" {
		t.Fatalf("instance id: %q %v", id1, err)
	}
	insertParts(t, s, model.WebPart{Container: "c1", PageID: "p", Index: 1, Location: "body", Name: "A"})
	_ = s.Close()

	s, err = Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	id2, _ := s.InstanceID(ctx)
	if id1 != id2 {
		t.Fatalf("instance id changed: %s -> %s", id1, id2)
	}
	got, _ := s.SelectParts(ctx, "c1", "p")
	if len(got) != 1 {
		t.Fatalf("expected row to persist, got %d", len(got))
	}
}

func testRegistry(t *testing.T) *portal.Registry {
	t.Helper()
	build := func(context.Context, *view.Context, model.WebPart) (view.View, error) {
		return view.TextView{Text: "x"}, nil
	}
	r, err := portal.NewRegistry(
		portal.NewFactory(portal.BaseFactory{Type: "A"}, build),
		portal.NewFactory(portal.BaseFactory{Type: "B"}, build),
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

// Two managers with their own caches write the same page; the one working from a stale view
// loses quietly and the winner's layout stands.
func TestManager_ConcurrentWritersConverge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	reg := testRegistry(t)

	slow, err := portal.NewManager(portal.Options{Store: s, Registry: reg})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	fast, err := portal.NewManager(portal.Options{Store: s, Registry: reg})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	if parts, err := slow.GetParts(ctx, "c1", ""); err != nil || len(parts) != 0 {
		t.Fatalf("prime: %v %v", parts, err)
	}
	if _, err := fast.AddPart(ctx, "c1", "", "B", "", 0, nil); err != nil {
		t.Fatalf("fast add: %v", err)
	}
	lost, err := slow.AddPart(ctx, "c1", "", "A", "", 0, nil)
	if err != nil {
		t.Fatalf("slow add should be swallowed, got %v", err)
	}
	if lost.RowID != 0 {
		t.Fatalf("expected losing insert to have no row id, got %d", lost.RowID)
	}

	got, err := s.SelectParts(ctx, "c1", model.DefaultPageID)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 1 || got[0].Name != "B" || got[0].Index != 1 {
		t.Fatalf("expected only B at index 1, got %#v", got)
	}

	// The loser re-reads after invalidation and can now build on the winner's layout.
	if _, err := slow.AddPart(ctx, "c1", "", "A", "", 1, nil); err != nil {
		t.Fatalf("retry add: %v", err)
	}
	got, _ = slow.GetParts(ctx, "c1", "")
	if len(got) != 2 || got[0].Name != "A" || got[1].Name != "B" {
		t.Fatalf("unexpected layout after retry: %#v", got)
	}
}

// A manager still holding a removed row must not fail its next edit.
func TestManager_StaleSnapshotAfterRemove(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	reg := testRegistry(t)

	writer, err := portal.NewManager(portal.Options{Store: s, Registry: reg})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	stale, err := portal.NewManager(portal.Options{Store: s, Registry: reg})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	a, err := writer.AddPart(ctx, "c1", "", "A", "", 0, nil)
	if err != nil {
		t.Fatalf("add a: %v", err)
	}
	b, err := writer.AddPart(ctx, "c1", "", "B", "", 0, nil)
	if err != nil {
		t.Fatalf("add b: %v", err)
	}
	if parts, err := stale.GetParts(ctx, "c1", ""); err != nil || len(parts) != 2 {
		t.Fatalf("prime: %v %v", parts, err)
	}
	if err := writer.RemovePart(ctx, "c1", "", a.RowID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if err := stale.MovePart(ctx, "c1", "", b.RowID, portal.Up); err != nil {
		t.Fatalf("move from stale layout should be swallowed, got %v", err)
	}
	got, err := s.SelectParts(ctx, "c1", model.DefaultPageID)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 1 || got[0].RowID != b.RowID {
		t.Fatalf("expected only B to remain, got %#v", got)
	}

	// After the reread the stale manager edits normally.
	if err := stale.MovePart(ctx, "c1", "", b.RowID, portal.Down); err != nil {
		t.Fatalf("second move: %v", err)
	}
	parts, _ := stale.GetParts(ctx, "c1", "")
	if len(parts) != 1 || parts[0].Name != "B" {
		t.Fatalf("unexpected layout: %#v", parts)
	}
}

func TestStore_SelectInsideTx(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := model.WebPart{Container: "c1", PageID: "p", Index: 1, Location: "body", Name: "A"}
	var got []model.WebPart
	err := s.InTx(ctx, func(tx portal.PartTx) error {
		if err := tx.InsertPart(ctx, &p); err != nil {
			return err
		}
		var err error
		got, err = tx.SelectParts(ctx, "c1", "p")
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	if len(got) != 1 || got[0].RowID != p.RowID {
		t.Fatalf("expected the uncommitted row inside the tx, got %#v", got)
	}
}
