package rag

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

var _ Searcher = (*Store)(nil)

// Store is a SQLite-backed document corpus implementing Searcher.
type Store struct {
	db *sql.DB
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	// Path is the database file path. Empty means an in-memory database.
	Path string
}

// NewStore opens the database and creates the schema if missing.
func NewStore(cfg StoreConfig) (*Store, error) {
	path := cfg.Path
	inMemory := path == "" || path == ":memory:"
	if inMemory {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// Each pooled connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			source TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			ordinal INTEGER NOT NULL,
			content TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// AddDocument stores a document and replaces its chunks. Missing ids are
// generated.
func (s *Store) AddDocument(ctx context.Context, doc Document, chunks []Chunk) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO documents (id, title, source) VALUES (?, ?, ?)",
		doc.ID, doc.Title, doc.Source,
	); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (id, document_id, ordinal, content) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if c.ID == "" {
			c.ID = fmt.Sprintf("%s#%d", doc.ID, i)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, doc.ID, i, c.Content); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document and its chunks.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", docID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return tx.Commit()
}

// Search implements Searcher with lexical overlap ranking. Candidates are
// loaded and scored in memory; corpora here are small in-app help sets,
// not web-scale indexes.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.ordinal, c.content, d.title
		FROM chunks c JOIN documents d ON d.id = c.document_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var candidates []scored
	for rows.Next() {
		var chunkID, docID, content, title string
		var ordinal int
		if err := rows.Scan(&chunkID, &docID, &ordinal, &content, &title); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		score := scoreChunk(queryTerms, title, content)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scored{
			ordinal: ordinal,
			result: SearchResult{
				DocID:   docID,
				ChunkID: chunkID,
				Title:   title,
				Snippet: snippet(content),
				Score:   score,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}

	return rank(queryTerms, candidates, limit), nil
}

// Stats reports corpus size.
func (s *Store) Stats(ctx context.Context) (docs, chunks int64, err error) {
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&docs); err != nil {
		return 0, 0, fmt.Errorf("failed to count documents: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&chunks); err != nil {
		return 0, 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return docs, chunks, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
