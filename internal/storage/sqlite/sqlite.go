package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/hnscrape/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	query TEXT NOT NULL,
	mode TEXT NOT NULL,
	position INTEGER NOT NULL,
	title TEXT,
	url TEXT,
	meta TEXT NOT NULL,
	data TEXT,
	created_at DATETIME NOT NULL,
	error TEXT
);
CREATE INDEX IF NOT EXISTS records_run_id ON records (run_id);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, r *storage.Record) error {
	metaJSON, err := json.Marshal(r.Meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}

	query := `
	INSERT INTO records (
		id, run_id, kind, query, mode, position, title, url, meta, data, created_at, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		r.ID,
		r.RunID,
		string(r.Kind),
		r.Query,
		r.Mode,
		r.Position,
		r.Title,
		r.URL,
		string(metaJSON),
		string(r.Data),
		r.CreatedAt.UTC(),
		r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", r.ID, err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	query := `SELECT id, run_id, kind, query, mode, position, title, url, meta, data, created_at, error FROM records WHERE 1=1`
	args := []any{}

	if filter.Query != "" {
		query += ` AND query = ?`
		args = append(args, filter.Query)
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY created_at DESC, position ASC`

	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	results := []*storage.Record{}
	for rows.Next() {
		var (
			r        storage.Record
			kind     string
			metaJSON string
			data     string
		)
		err := rows.Scan(
			&r.ID, &r.RunID, &kind, &r.Query, &r.Mode, &r.Position, &r.Title, &r.URL,
			&metaJSON, &data, &r.CreatedAt, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		r.Kind = storage.Kind(kind)
		if data != "" {
			r.Data = json.RawMessage(data)
		}
		if err := json.Unmarshal([]byte(metaJSON), &r.Meta); err != nil {
			return nil, fmt.Errorf("decode meta of %s: %w", r.ID, err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
