package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
)

// ErrEmptyName is returned for a document without a name.
var ErrEmptyName = errors.New("document name is empty")

// Persistable is state that round-trips through a JSON document.
type Persistable interface {
	Load(data []byte) error
	ToJSON() ([]byte, error)
}

// Save writes the current state of p under name.
func (db *DB) Save(ctx context.Context, name string, p Persistable) error {
	if name == "" {
		return ErrEmptyName
	}
	body, err := p.ToJSON()
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO documents (name, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		name, body,
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	log.Debug(log.CatStore, "Saved document", "name", name, "bytes", len(body))
	return nil
}

// Restore loads the document stored under name into p. It reports false when
// no such document exists, leaving p untouched.
func (db *DB) Restore(ctx context.Context, name string, p Persistable) (bool, error) {
	var body []byte
	err := db.conn.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := p.Load(body); err != nil {
		return false, fmt.Errorf("load %s: %w", name, err)
	}
	log.Debug(log.CatStore, "Restored document", "name", name)
	return true, nil
}

// Delete removes the document stored under name.
func (db *DB) Delete(ctx context.Context, name string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Names lists stored document names in order.
func (db *DB) Names(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan document name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// AutoSave saves p under name after every batch in which src changed.
// Save errors are logged.
func (db *DB) AutoSave(ctx context.Context, name string, p Persistable, src reactive.Source) reactive.Disposer {
	return src.Changes().Subscribe(func() {
		if ctx.Err() != nil {
			return
		}
		if err := db.Save(ctx, name, p); err != nil {
			log.ErrorErr(log.CatStore, "Auto-save failed", err, "name", name)
		}
	})
}
