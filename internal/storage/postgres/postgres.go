package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/hnscrape/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	query TEXT NOT NULL,
	mode TEXT NOT NULL,
	position INTEGER NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	meta JSONB NOT NULL,
	data JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS records_run_id ON records (run_id);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, r *storage.Record) error {
	metaJSON, err := json.Marshal(r.Meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	var data []byte
	if len(r.Data) > 0 {
		data = r.Data
	}

	query := `
	INSERT INTO records (
		id, run_id, kind, query, mode, position, title, url, meta, data, created_at, error
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = b.pool.Exec(ctx, query,
		r.ID,
		r.RunID,
		string(r.Kind),
		r.Query,
		r.Mode,
		r.Position,
		r.Title,
		r.URL,
		metaJSON,
		data,
		r.CreatedAt,
		r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", r.ID, err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	query := `SELECT id, run_id, kind, query, mode, position, title, url, meta, data, created_at, error FROM records WHERE 1=1`
	args := []any{}
	param := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Query != "" {
		query += ` AND query = ` + param(filter.Query)
	}
	if filter.Kind != "" {
		query += ` AND kind = ` + param(string(filter.Kind))
	}
	if filter.RunID != "" {
		query += ` AND run_id = ` + param(filter.RunID)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ` + param(*filter.Since)
	}

	query += ` ORDER BY created_at DESC, position ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ` + param(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + param(filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	results := []*storage.Record{}
	for rows.Next() {
		var (
			r        storage.Record
			kind     string
			metaJSON []byte
			data     []byte
		)
		err := rows.Scan(
			&r.ID, &r.RunID, &kind, &r.Query, &r.Mode, &r.Position, &r.Title, &r.URL,
			&metaJSON, &data, &r.CreatedAt, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		r.Kind = storage.Kind(kind)
		if len(data) > 0 {
			r.Data = data
		}
		if err := json.Unmarshal(metaJSON, &r.Meta); err != nil {
			return nil, fmt.Errorf("decode meta of %s: %w", r.ID, err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
