package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"portalkit/internal/model"
	"portalkit/internal/portal"

	"go.uber.org/zap"
)

const partColumns = `row_id, container, page_id, part_index, location, name, permanent, properties_json`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readParts(ctx context.Context, q queryer, query string, args ...any) ([]model.WebPart, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WebPart
	for rows.Next() {
		var (
			p         model.WebPart
			permanent int
			props     string
		)
		if err := rows.Scan(&p.RowID, &p.Container, &p.PageID, &p.Index, &p.Location, &p.Name, &permanent, &props); err != nil {
			return nil, err
		}
		p.Permanent = permanent != 0
		if props != "" && props != "{}" && props != "null" {
			if err := json.Unmarshal([]byte(props), &p.Properties); err != nil {
				return nil, fmt.Errorf("webpart %d properties: %w", p.RowID, err)
			}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const selectPage = `SELECT ` + partColumns + ` FROM webparts WHERE container = ? AND page_id = ? ORDER BY part_index`

func (s *Store) SelectParts(ctx context.Context, container, pageID string) ([]model.WebPart, error) {
	return readParts(ctx, s.db, selectPage, container, pageID)
}

// Pages lists the page ids of a container that have at least one part.
func (s *Store) Pages(ctx context.Context, container string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT page_id FROM webparts WHERE container = ? ORDER BY page_id`, container)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) DeleteContainer(ctx context.Context, container string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM webparts WHERE container = ?`, container)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	s.log.Info("container webparts deleted", zap.String("container", container), zap.Int64("rows", n))
	return nil
}

// InTx runs fn in a transaction. Uniqueness violations anywhere in fn come back wrapping
// portal.ErrConflict, with the transaction rolled back.
func (s *Store) InTx(ctx context.Context, fn func(tx portal.PartTx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&partTx{tx: tx, now: time.Now().UTC().UnixMilli()}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return conflictErr(err)
	}
	return nil
}

func conflictErr(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", portal.ErrConflict, err)
	}
	return err
}

type partTx struct {
	tx  *sql.Tx
	now int64
}

func (t *partTx) SelectParts(ctx context.Context, container, pageID string) ([]model.WebPart, error) {
	return readParts(ctx, t.tx, selectPage, container, pageID)
}

func (t *partTx) DeletePart(ctx context.Context, rowID int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM webparts WHERE row_id = ?`, rowID)
	return err
}

// UpdateParts first parks every row of the batch on a negative index so the unique index
// tolerates any permutation of positions, then writes the final values.
func (t *partTx) UpdateParts(ctx context.Context, parts []model.WebPart) error {
	for _, p := range parts {
		res, err := t.tx.ExecContext(ctx, `UPDATE webparts SET part_index = -1 - part_index WHERE row_id = ?`, p.RowID)
		if err != nil {
			return conflictErr(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return portal.NotFoundError{Kind: "webpart", ID: fmt.Sprint(p.RowID)}
		}
	}
	for _, p := range parts {
		props, err := marshalProps(p.Properties)
		if err != nil {
			return err
		}
		if _, err := t.tx.ExecContext(ctx, `UPDATE webparts
			SET container = ?, page_id = ?, part_index = ?, location = ?, name = ?, permanent = ?, properties_json = ?, updated_at_unixms = ?
			WHERE row_id = ?`,
			p.Container, p.PageID, p.Index, p.Location, p.Name, boolToInt(p.Permanent), props, t.now, p.RowID); err != nil {
			return conflictErr(err)
		}
	}
	return nil
}

func (t *partTx) InsertPart(ctx context.Context, p *model.WebPart) error {
	props, err := marshalProps(p.Properties)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, `INSERT INTO webparts(container, page_id, part_index, location, name, permanent, properties_json, updated_at_unixms)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Container, p.PageID, p.Index, p.Location, p.Name, boolToInt(p.Permanent), props, t.now)
	if err != nil {
		return conflictErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.RowID = id
	return nil
}

func marshalProps(props map[string]string) (string, error) {
	if len(props) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(props)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ portal.PartStore = (*Store)(nil)
