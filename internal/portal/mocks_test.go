package portal

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"sync"

	"portalkit/internal/model"
	"portalkit/internal/view"
)

// memStore is an in-memory PartStore enforcing the (container, page, index) unique key.
type memStore struct {
	mu      sync.Mutex
	rows    map[int64]model.WebPart
	next    int64
	selects int
	failTx  error
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]model.WebPart{}}
}

func (s *memStore) SelectParts(_ context.Context, container, pageID string) ([]model.WebPart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selects++
	var out []model.WebPart
	for _, p := range s.rows {
		if p.Container == container && p.PageID == pageID {
			out = append(out, p.Copy())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (s *memStore) InTx(_ context.Context, fn func(tx PartTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTx != nil {
		return s.failTx
	}
	tx := &memTx{rows: make(map[int64]model.WebPart, len(s.rows)), next: s.next}
	for id, p := range s.rows {
		tx.rows[id] = p.Copy()
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.rows = tx.rows
	s.next = tx.next
	return nil
}

func (s *memStore) DeleteContainer(_ context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.rows {
		if p.Container == container {
			delete(s.rows, id)
		}
	}
	return nil
}

func (s *memStore) selectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selects
}

func (s *memStore) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type memTx struct {
	rows map[int64]model.WebPart
	next int64
}

func (tx *memTx) checkUnique() error {
	seen := map[string]int64{}
	for id, p := range tx.rows {
		k := fmt.Sprintf("%s|%s|%d", p.Container, p.PageID, p.Index)
		if other, ok := seen[k]; ok {
			return fmt.Errorf("rows %d and %d share %s: %w", other, id, k, ErrConflict)
		}
		seen[k] = id
	}
	return nil
}

func (tx *memTx) SelectParts(_ context.Context, container, pageID string) ([]model.WebPart, error) {
	var out []model.WebPart
	for _, p := range tx.rows {
		if p.Container == container && p.PageID == pageID {
			out = append(out, p.Copy())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (tx *memTx) DeletePart(_ context.Context, rowID int64) error {
	delete(tx.rows, rowID)
	return nil
}

func (tx *memTx) UpdateParts(_ context.Context, parts []model.WebPart) error {
	for _, p := range parts {
		if _, ok := tx.rows[p.RowID]; !ok {
			return errNotFound("webpart", p.RowID)
		}
		tx.rows[p.RowID] = p.Copy()
	}
	return tx.checkUnique()
}

func (tx *memTx) InsertPart(_ context.Context, p *model.WebPart) error {
	tx.next++
	p.RowID = tx.next
	tx.rows[p.RowID] = p.Copy()
	return tx.checkUnique()
}

type folderTypes map[string]FolderType

func (f folderTypes) FolderTypeFor(c model.Container) FolderType { return f[c.FolderType] }

type tabFolder struct {
	calls int
	err   error
	parts []string
}

func (f *tabFolder) Name() string { return "tabbed" }

func (f *tabFolder) InitializeTab(ctx context.Context, m *Manager, c model.Container, pageID string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	for _, name := range f.parts {
		if _, err := m.AddPart(ctx, c.ID, pageID, name, "", 0, nil); err != nil {
			return err
		}
	}
	return nil
}

func textFactory(name, location string) Factory {
	return NewFactory(BaseFactory{Type: name, Display: name + " Part", Location: location, Editable: true},
		func(_ context.Context, _ *view.Context, part model.WebPart) (view.View, error) {
			return view.HTMLView{HTML: template.HTML("<p>" + template.HTMLEscapeString(part.Name) + "</p>")}, nil
		})
}

var errFactory = errors.New("factory exploded")

func testRegistry() *Registry {
	r, err := NewRegistry(
		textFactory("Alpha", model.LocationBody),
		textFactory("Beta", model.LocationBody),
		NewFactory(BaseFactory{Type: "Side", Location: model.LocationRight, Locations: []string{model.LocationRight}},
			func(context.Context, *view.Context, model.WebPart) (view.View, error) {
				return view.HTMLView{HTML: "<p>side</p>"}, nil
			}),
		NewFactory(BaseFactory{Type: "Failing", Locations: []string{"nowhere"}},
			func(context.Context, *view.Context, model.WebPart) (view.View, error) {
				return nil, errFactory
			}),
		NewFactory(BaseFactory{Type: "Panicky", Locations: []string{"nowhere"}},
			func(context.Context, *view.Context, model.WebPart) (view.View, error) {
				panic("factory panic")
			}),
		NewFactory(BaseFactory{Type: "Empty", Locations: []string{"nowhere"}},
			func(context.Context, *view.Context, model.WebPart) (view.View, error) {
				return nil, nil
			}),
	)
	if err != nil {
		panic(err)
	}
	return r
}

func newTestManager(store PartStore, opts ...func(*Options)) *Manager {
	o := Options{Store: store, Registry: testRegistry()}
	for _, fn := range opts {
		fn(&o)
	}
	m, err := NewManager(o)
	if err != nil {
		panic(err)
	}
	return m
}
