package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/hnscrape/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"run_id",
	"kind",
	"query",
	"mode",
	"position",
	"title",
	"url",
	"meta_json",
	"data_json",
	"created_at",
	"error",
}

// New creates a new CSV-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, r *storage.Record) error {
	metaJSON, err := json.Marshal(r.Meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}

	row := []string{
		r.ID,
		r.RunID,
		string(r.Kind),
		r.Query,
		r.Mode,
		strconv.Itoa(r.Position),
		r.Title,
		r.URL,
		string(metaJSON),
		string(r.Data),
		r.CreatedAt.Format(time.RFC3339Nano),
		r.Error,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek end: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write record %s: %w", r.ID, err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("write record %s: %w", r.ID, err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	rd := csv.NewReader(b.file)

	if _, err := rd.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []*storage.Record{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	matched := []*storage.Record{}
	for {
		row, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		if len(row) != len(headers) {
			continue // skip malformed rows
		}

		position, _ := strconv.Atoi(row[5])
		var meta []string
		if err := json.Unmarshal([]byte(row[8]), &meta); err != nil {
			meta = nil
		}
		createdAt, _ := time.Parse(time.RFC3339Nano, row[10])

		rec := &storage.Record{
			ID:        row[0],
			RunID:     row[1],
			Kind:      storage.Kind(row[2]),
			Query:     row[3],
			Mode:      row[4],
			Position:  position,
			Title:     row[6],
			URL:       row[7],
			Meta:      meta,
			CreatedAt: createdAt,
			Error:     row[11],
		}
		if row[9] != "" {
			rec.Data = json.RawMessage(row[9])
		}

		if filter.Match(rec) {
			matched = append(matched, rec)
		}
	}

	return storage.Window(matched, filter), nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
