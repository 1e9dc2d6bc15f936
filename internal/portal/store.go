package portal

import (
	"context"

	"portalkit/internal/model"
)

// PartStore persists webpart rows keyed by (container, page, row id).
type PartStore interface {
	// SelectParts returns the rows of one portal page ordered by index.
	SelectParts(ctx context.Context, container, pageID string) ([]model.WebPart, error)

	// InTx runs fn in one transaction. A non-nil error from fn rolls everything back.
	// Uniqueness violations surface as errors wrapping ErrConflict.
	InTx(ctx context.Context, fn func(tx PartTx) error) error

	// DeleteContainer removes every row of every page of a container.
	DeleteContainer(ctx context.Context, container string) error
}

type PartTx interface {
	// SelectParts reads the page's rows as the transaction sees them.
	SelectParts(ctx context.Context, container, pageID string) ([]model.WebPart, error)

	DeletePart(ctx context.Context, rowID int64) error

	// UpdateParts rewrites existing rows. The batch is applied as a whole, so indexes may be
	// permuted among the rows without tripping the page's unique index.
	UpdateParts(ctx context.Context, parts []model.WebPart) error

	// InsertPart writes a new row and sets p.RowID.
	InsertPart(ctx context.Context, p *model.WebPart) error
}

// FolderType supplies default content for a container's portal tabs.
type FolderType interface {
	Name() string

	// InitializeTab adds the default parts for pageID. It is called when a named tab is
	// rendered with no rows yet.
	InitializeTab(ctx context.Context, m *Manager, c model.Container, pageID string) error
}

// FolderTypes resolves the folder type of a container. It may return nil.
type FolderTypes interface {
	FolderTypeFor(c model.Container) FolderType
}

// Permissions decides whether a user may rearrange a container's portal pages.
type Permissions interface {
	CanCustomize(u model.User, c model.Container) bool
}
