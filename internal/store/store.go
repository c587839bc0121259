package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/drafthaus/cadindex/internal/domain"
	"github.com/drafthaus/cadindex/internal/embedding"
	"github.com/drafthaus/cadindex/internal/observability"
)

// SearchResult pairs a record with its similarity score.
type SearchResult struct {
	Record domain.CanonicalRecord
	Score  float32
}

// Stats summarizes store contents.
type Stats struct {
	TotalRecords int
	Indexed      int
	ByKind       map[domain.FileKind]int
}

// Store is the storage facade: a SQLite records table fronted by an
// in-memory vector index for semantic queries.
type Store struct {
	db       *sql.DB
	records  *RecordRepository
	index    *VectorIndex
	embedder embedding.Embedder
	logger   *observability.Logger
}

// Open opens (creating if necessary) the database at dbPath, migrates
// the schema and rebuilds the vector index from stored embeddings.
func Open(ctx context.Context, dbPath string, embedder embedding.Embedder, logger *observability.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrStorage, dbPath, err)
	}

	s := &Store{
		db:       db,
		records:  NewRecordRepository(db),
		index:    NewVectorIndex(),
		embedder: embedder,
		logger:   logger.WithComponent("store"),
	}
	if err := s.records.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.records.Embeddings(ctx, s.index.Add); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info().Str("db", dbPath).Int("indexed", s.index.Count()).Msg("Store opened")
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Exists reports whether a record is already stored under contentID.
func (s *Store) Exists(ctx context.Context, contentID string) (bool, error) {
	return s.records.Exists(ctx, contentID)
}

// Upsert embeds the record's searchable text and writes both the row
// and the vector. An embedding failure fails the upsert: a record the
// search cannot find is worse than a retryable error.
func (s *Store) Upsert(ctx context.Context, rec domain.CanonicalRecord) error {
	vec, err := s.embedder.EmbedSingle(ctx, rec.SearchableText)
	if err != nil {
		return fmt.Errorf("embed %s: %w", rec.ContentID, err)
	}
	if err := s.records.Upsert(ctx, rec, vec); err != nil {
		return err
	}
	s.index.Add(rec.ContentID, vec)
	return nil
}

// Get retrieves one record; domain.ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, contentID string) (*domain.CanonicalRecord, error) {
	return s.records.Get(ctx, contentID)
}

// Delete removes a record from both the table and the index.
func (s *Store) Delete(ctx context.Context, contentID string) error {
	if err := s.records.Delete(ctx, contentID); err != nil {
		return err
	}
	s.index.Remove(contentID)
	return nil
}

// List returns every stored record.
func (s *Store) List(ctx context.Context) ([]domain.CanonicalRecord, error) {
	return s.records.List(ctx)
}

// Query embeds the text and returns up to k records ranked by cosine
// similarity, optionally filtered by file kind. kindFilter == "" means
// no filter.
func (s *Store) Query(ctx context.Context, text string, k int, kindFilter domain.FileKind) ([]SearchResult, error) {
	if k <= 0 {
		k = 5
	}
	vec, err := s.embedder.EmbedSingle(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Over-fetch when filtering so the filter does not starve results.
	fetch := k
	if kindFilter != "" {
		fetch = k * 4
	}

	var results []SearchResult
	for _, hit := range s.index.Search(vec, fetch) {
		rec, err := s.records.Get(ctx, hit.ContentID)
		if err != nil {
			// Index entry without a row means a lost race with delete.
			s.logger.Warn().Err(err).Str("content_id", hit.ContentID).Msg("Indexed record missing from table")
			continue
		}
		if kindFilter != "" && rec.FileKind != kindFilter {
			continue
		}
		results = append(results, SearchResult{Record: *rec, Score: hit.Score})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// Stats reports record counts.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	byKind, err := s.records.CountByKind(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range byKind {
		total += n
	}
	return &Stats{TotalRecords: total, Indexed: s.index.Count(), ByKind: byKind}, nil
}
