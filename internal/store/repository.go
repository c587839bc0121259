// Package store persists canonical records in SQLite and serves
// semantic queries from an in-memory vector index rebuilt at startup.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/drafthaus/cadindex/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	content_id      TEXT PRIMARY KEY,
	filename        TEXT NOT NULL,
	abs_path        TEXT NOT NULL,
	file_kind       TEXT NOT NULL,
	description     TEXT NOT NULL,
	searchable_text TEXT NOT NULL,
	specs_json      TEXT NOT NULL DEFAULT '{}',
	csv_data        TEXT NOT NULL DEFAULT '',
	entity_count    INTEGER NOT NULL DEFAULT 0,
	layer_count     INTEGER NOT NULL DEFAULT 0,
	block_count     INTEGER NOT NULL DEFAULT 0,
	embedding       BLOB,
	created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_file_kind ON records(file_kind);
`

// DB is the subset of *sql.DB the repository needs.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// RecordRepository handles canonical record persistence.
type RecordRepository struct {
	db DB
}

// NewRecordRepository creates a record repository.
func NewRecordRepository(db DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Migrate creates the schema if it does not exist.
func (r *RecordRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: migrate: %v", domain.ErrStorage, err)
	}
	return nil
}

// Exists reports whether a record with the given content id is stored.
func (r *RecordRepository) Exists(ctx context.Context, contentID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM records WHERE content_id = ?`, contentID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: exists: %v", domain.ErrStorage, err)
	}
	return n > 0, nil
}

// Upsert writes a record and its embedding, replacing any previous row
// with the same content id.
func (r *RecordRepository) Upsert(ctx context.Context, rec domain.CanonicalRecord, embedding []float32) error {
	specsJSON, err := json.Marshal(rec.Specs)
	if err != nil {
		specsJSON = []byte("{}")
	}

	query := `
		INSERT INTO records (content_id, filename, abs_path, file_kind, description,
			searchable_text, specs_json, csv_data, entity_count, layer_count, block_count,
			embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_id) DO UPDATE SET
			filename = excluded.filename,
			abs_path = excluded.abs_path,
			file_kind = excluded.file_kind,
			description = excluded.description,
			searchable_text = excluded.searchable_text,
			specs_json = excluded.specs_json,
			csv_data = excluded.csv_data,
			entity_count = excluded.entity_count,
			layer_count = excluded.layer_count,
			block_count = excluded.block_count,
			embedding = excluded.embedding
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.ContentID, rec.Filename, rec.AbsolutePath, string(rec.FileKind), rec.Description,
		rec.SearchableText, string(specsJSON), rec.CSVData, rec.EntityCount, rec.LayerCount,
		rec.BlockCount, encodeEmbedding(embedding), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", domain.ErrStorage, rec.ContentID, err)
	}
	return nil
}

const recordColumns = `content_id, filename, abs_path, file_kind, description,
	searchable_text, specs_json, csv_data, entity_count, layer_count, block_count`

// Get retrieves one record by content id.
func (r *RecordRepository) Get(ctx context.Context, contentID string) (*domain.CanonicalRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE content_id = ?`, contentID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrStorage, contentID, err)
	}
	return rec, nil
}

// Delete removes one record. Deleting an absent id is not an error.
func (r *RecordRepository) Delete(ctx context.Context, contentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE content_id = ?`, contentID); err != nil {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrStorage, contentID, err)
	}
	return nil
}

// List returns all records ordered by filename.
func (r *RecordRepository) List(ctx context.Context) ([]domain.CanonicalRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var records []domain.CanonicalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list scan: %v", domain.ErrStorage, err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// CountByKind returns record counts grouped by file kind.
func (r *RecordRepository) CountByKind(ctx context.Context) (map[domain.FileKind]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT file_kind, COUNT(1) FROM records GROUP BY file_kind`)
	if err != nil {
		return nil, fmt.Errorf("%w: count: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	counts := make(map[domain.FileKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("%w: count scan: %v", domain.ErrStorage, err)
		}
		counts[domain.FileKind(kind)] = n
	}
	return counts, rows.Err()
}

// Embeddings streams every stored (content id, embedding) pair, used
// to rebuild the vector index at startup.
func (r *RecordRepository) Embeddings(ctx context.Context, fn func(contentID string, vec []float32)) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT content_id, embedding FROM records WHERE embedding IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("%w: embeddings: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return fmt.Errorf("%w: embeddings scan: %v", domain.ErrStorage, err)
		}
		if vec := decodeEmbedding(blob); len(vec) > 0 {
			fn(id, vec)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*domain.CanonicalRecord, error) {
	var rec domain.CanonicalRecord
	var kind, specsJSON string
	err := row.Scan(
		&rec.ContentID, &rec.Filename, &rec.AbsolutePath, &kind, &rec.Description,
		&rec.SearchableText, &specsJSON, &rec.CSVData,
		&rec.EntityCount, &rec.LayerCount, &rec.BlockCount,
	)
	if err != nil {
		return nil, err
	}
	rec.FileKind = domain.FileKind(kind)
	rec.Specs = map[string]any{}
	if specsJSON != "" {
		// A corrupt specs column degrades to an empty map.
		_ = json.Unmarshal([]byte(specsJSON), &rec.Specs)
	}
	return &rec, nil
}
