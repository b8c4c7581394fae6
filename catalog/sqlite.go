/*
sqlite.go - SQLite-backed catalog store

PURPOSE:
  Persists the reward catalog so admin edits survive restarts. The
  member ledger deliberately stays in memory (accounts are
  session-scoped); the catalog is the one piece of state that outlives a
  session.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single
  writer at a time.

USAGE:
  store, err := catalog.NewSQLite("./data/catalog.db")
  defer store.Close()

SEE ALSO:
  - catalog.go: Store interface and in-memory implementation
*/
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/binrewards/loyalty-engine/ledger"
)

// SQLite implements Store on a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and migrates) a catalog database at the given path.
// Use ":memory:" for an in-memory database.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rewards (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		cost INTEGER NOT NULL CHECK (cost > 0),
		category TEXT NOT NULL,
		icon TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) List(ctx context.Context) ([]Reward, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, cost, category, icon FROM rewards ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reward
	for rows.Next() {
		var r Reward
		var cost int64
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &cost, &r.Category, &r.Icon); err != nil {
			return nil, err
		}
		r.Cost = ledger.Points(cost)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, id string) (*Reward, error) {
	var r Reward
	var cost int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, cost, category, icon FROM rewards WHERE id = ?`, id).
		Scan(&r.ID, &r.Title, &r.Description, &cost, &r.Category, &r.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRewardNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Cost = ledger.Points(cost)
	return &r, nil
}

func (s *SQLite) Create(ctx context.Context, r Reward) (Reward, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rewards (id, title, description, cost, category, icon, position)
		 VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM rewards))`,
		r.ID, r.Title, r.Description, int64(r.Cost), string(r.Category), r.Icon)
	if err != nil {
		return Reward{}, err
	}
	return r, nil
}

func (s *SQLite) Update(ctx context.Context, r Reward) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rewards SET title = ?, description = ?, cost = ?, category = ?, icon = ? WHERE id = ?`,
		r.Title, r.Description, int64(r.Cost), string(r.Category), r.Icon, r.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRewardNotFound
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRewardNotFound
	}
	return nil
}
