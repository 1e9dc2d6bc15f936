package portal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"portalkit/internal/model"

	"go.uber.org/zap"
)

type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	default:
		return Up, fmt.Errorf("invalid direction %q (expected up|down)", s)
	}
}

type Options struct {
	Store       PartStore
	Registry    *Registry
	FolderTypes FolderTypes
	Cache       *Cache
	URLs        URLs
	Logger      *zap.Logger

	// Regions lists the extension points offered in add-webpart menus, in display order.
	Regions []string
}

// Manager is the portal layout engine: it reads and writes the ordered webpart list of each
// portal page and turns it into region views.
type Manager struct {
	store    PartStore
	registry *Registry
	folders  FolderTypes
	cache    *Cache
	urls     URLs
	log      *zap.Logger
	regions  []string
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("portal: store is nil")
	}
	if opts.Registry == nil {
		opts.Registry, _ = NewRegistry()
	}
	if opts.Cache == nil {
		opts.Cache = NewCache()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.Regions) == 0 {
		opts.Regions = []string{model.LocationBody, model.LocationRight}
	}
	return &Manager{
		store:    opts.Store,
		registry: opts.Registry,
		folders:  opts.FolderTypes,
		cache:    opts.Cache,
		urls:     opts.URLs,
		log:      opts.Logger,
		regions:  append([]string(nil), opts.Regions...),
	}, nil
}

func (m *Manager) Registry() *Registry { return m.registry }

func (m *Manager) Regions() []string { return append([]string(nil), m.regions...) }

func (m *Manager) URLs() URLs { return m.urls }

// GetParts returns the parts of a portal page ordered by index.
func (m *Manager) GetParts(ctx context.Context, container, pageID string) ([]model.WebPart, error) {
	pageID = model.NormalizePageID(pageID)
	return m.cache.Get(ctx, container, pageID, func(ctx context.Context) ([]model.WebPart, error) {
		parts, err := m.store.SelectParts(ctx, container, pageID)
		if err != nil {
			return nil, fmt.Errorf("select webparts %s/%s: %w", container, pageID, err)
		}
		sortByIndex(parts)
		return parts, nil
	})
}

func (m *Manager) GetPart(ctx context.Context, container, pageID string, rowID int64) (model.WebPart, error) {
	parts, err := m.GetParts(ctx, container, pageID)
	if err != nil {
		return model.WebPart{}, err
	}
	for _, p := range parts {
		if p.RowID == rowID {
			return p, nil
		}
	}
	return model.WebPart{}, errNotFound("webpart", rowID)
}

// AddPart places a new part of type name in location. With index <= 0 the part goes after every
// existing part of the page; otherwise every part at index or later moves up one to make room.
// If a concurrent writer wins the save, the returned part has RowID 0.
func (m *Manager) AddPart(ctx context.Context, container, pageID, name, location string, index int, props map[string]string) (model.WebPart, error) {
	pageID = model.NormalizePageID(pageID)
	f := m.registry.Lookup(name)
	if f == nil {
		return model.WebPart{}, fmt.Errorf("%w: %s", ErrUnknownFactory, name)
	}
	location = strings.TrimSpace(location)
	if location == "" {
		location = f.DefaultLocation()
	}

	parts, err := m.GetParts(ctx, container, pageID)
	if err != nil {
		return model.WebPart{}, err
	}

	added := model.WebPart{
		Container: container,
		PageID:    pageID,
		Location:  location,
		Name:      f.Name(),
	}
	if len(props) > 0 {
		added.Properties = make(map[string]string, len(props))
		for k, v := range props {
			added.Properties[k] = v
		}
	}

	if index <= 0 {
		added.Index = maxIndex(parts) + 1
	} else {
		for i := range parts {
			if parts[i].Index >= index {
				parts[i].Index++
			}
		}
		added.Index = index
	}
	parts = append(parts, added)

	saved, err := m.saveParts(ctx, container, pageID, parts)
	if err != nil {
		return model.WebPart{}, err
	}
	return saved[len(saved)-1], nil
}

// SaveParts makes parts the layout of the page. Parts are ordered by their current index (ties
// keep input order), renumbered from 1, and diffed by row id against the rows read inside the
// save transaction: missing rows are deleted, known rows updated, the rest inserted.
//
// The save is rolled back and reported as success when another writer changed the page first:
// a uniqueness conflict, a row the caller knew about that is gone, or a row the caller never
// saw. That writer's layout stays in place and the cache is dropped so the next read sees it.
func (m *Manager) SaveParts(ctx context.Context, container, pageID string, parts []model.WebPart) error {
	_, err := m.saveParts(ctx, container, model.NormalizePageID(pageID), parts)
	return err
}

// saveParts returns the normalized parts, with row ids for the inserted ones. The order of the
// result matches the order of parts after a stable sort by index, except that inserted rows
// keep their relative order at the end of the slice they were appended to.
func (m *Manager) saveParts(ctx context.Context, container, pageID string, parts []model.WebPart) ([]model.WebPart, error) {
	// The layout the caller edited; rows outside it mean the page moved on.
	seen, err := m.GetParts(ctx, container, pageID)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]bool, len(seen))
	for _, p := range seen {
		known[p.RowID] = true
	}

	work := model.CopyParts(parts)
	order := make([]int, len(work))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return work[order[a]].Index < work[order[b]].Index })
	for pos, i := range order {
		work[i].Index = pos + 1
		work[i].Container = container
		work[i].PageID = pageID
	}

	var inserts []int
	err = m.store.InTx(ctx, func(tx PartTx) error {
		current, err := tx.SelectParts(ctx, container, pageID)
		if err != nil {
			return err
		}
		stored := make(map[int64]bool, len(current))
		for _, p := range current {
			if !known[p.RowID] {
				return fmt.Errorf("%w: webpart %d added by another writer", ErrConflict, p.RowID)
			}
			stored[p.RowID] = true
		}

		keep := make(map[int64]bool, len(work))
		var updates []model.WebPart
		inserts = inserts[:0]
		for i := range work {
			id := work[i].RowID
			switch {
			case id != 0 && stored[id] && !keep[id]:
				keep[id] = true
				updates = append(updates, work[i])
				continue
			case id != 0 && known[id] && !stored[id]:
				return fmt.Errorf("%w: webpart %d removed by another writer", ErrConflict, id)
			}
			work[i].RowID = 0
			inserts = append(inserts, i)
		}

		for _, p := range current {
			if keep[p.RowID] {
				continue
			}
			if err := tx.DeletePart(ctx, p.RowID); err != nil {
				return err
			}
		}
		if len(updates) > 0 {
			if err := tx.UpdateParts(ctx, updates); err != nil {
				return err
			}
		}
		for _, i := range inserts {
			if err := tx.InsertPart(ctx, &work[i]); err != nil {
				return err
			}
		}
		m.cache.Invalidate(container, pageID)
		return nil
	})
	m.cache.Invalidate(container, pageID)

	if errors.Is(err, ErrConflict) {
		// Another writer got there first; its layout stands.
		m.log.Info("webpart save lost to concurrent writer",
			zap.String("container", container),
			zap.String("page", pageID),
			zap.Error(err),
		)
		for _, i := range inserts {
			work[i].RowID = 0
		}
		return work, nil
	}
	if err != nil {
		return nil, fmt.Errorf("save webparts %s/%s: %w", container, pageID, err)
	}
	return work, nil
}

// MovePart swaps the part with its previous (Up) or next (Down) sibling in the same region.
// Moving past either end of the region does nothing.
func (m *Manager) MovePart(ctx context.Context, container, pageID string, rowID int64, dir Direction) error {
	pageID = model.NormalizePageID(pageID)
	parts, err := m.GetParts(ctx, container, pageID)
	if err != nil {
		return err
	}
	at := indexOfRow(parts, rowID)
	if at < 0 {
		return errNotFound("webpart", rowID)
	}

	region := PartsByLocation(parts)[parts[at].Location]
	pos := -1
	for i, p := range region {
		if p.RowID == rowID {
			pos = i
			break
		}
	}
	neighbor := pos - 1
	if dir == Down {
		neighbor = pos + 1
	}
	if pos < 0 || neighbor < 0 || neighbor >= len(region) {
		return nil
	}

	other := indexOfRow(parts, region[neighbor].RowID)
	parts[at].Index, parts[other].Index = parts[other].Index, parts[at].Index
	return m.SaveParts(ctx, container, pageID, parts)
}

// RemovePart deletes a part from the page. Permanent parts cannot be removed.
func (m *Manager) RemovePart(ctx context.Context, container, pageID string, rowID int64) error {
	pageID = model.NormalizePageID(pageID)
	parts, err := m.GetParts(ctx, container, pageID)
	if err != nil {
		return err
	}
	at := indexOfRow(parts, rowID)
	if at < 0 {
		return errNotFound("webpart", rowID)
	}
	if parts[at].Permanent {
		return fmt.Errorf("%w: %d", ErrPermanent, rowID)
	}
	parts = append(parts[:at], parts[at+1:]...)
	return m.SaveParts(ctx, container, pageID, parts)
}

// SetProperties replaces the property map of one part.
func (m *Manager) SetProperties(ctx context.Context, container, pageID string, rowID int64, props map[string]string) error {
	pageID = model.NormalizePageID(pageID)
	parts, err := m.GetParts(ctx, container, pageID)
	if err != nil {
		return err
	}
	at := indexOfRow(parts, rowID)
	if at < 0 {
		return errNotFound("webpart", rowID)
	}
	parts[at].Properties = make(map[string]string, len(props))
	for k, v := range props {
		parts[at].Properties[k] = v
	}
	return m.SaveParts(ctx, container, pageID, parts)
}

// DeleteContainer removes every portal page of a container.
func (m *Manager) DeleteContainer(ctx context.Context, container string) error {
	err := m.store.DeleteContainer(ctx, container)
	m.cache.InvalidateContainer(container)
	if err != nil {
		return fmt.Errorf("delete webparts of %s: %w", container, err)
	}
	return nil
}

// PartsByLocation groups parts by region, keeping their relative order. Parts without a type
// name are dropped.
func PartsByLocation(parts []model.WebPart) map[string][]model.WebPart {
	out := map[string][]model.WebPart{}
	for _, p := range parts {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		out[p.Location] = append(out[p.Location], p)
	}
	return out
}

func sortByIndex(parts []model.WebPart) {
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Index < parts[j].Index })
}

func maxIndex(parts []model.WebPart) int {
	max := 0
	for _, p := range parts {
		if p.Index > max {
			max = p.Index
		}
	}
	return max
}

func indexOfRow(parts []model.WebPart, rowID int64) int {
	for i := range parts {
		if parts[i].RowID == rowID {
			return i
		}
	}
	return -1
}
