package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"github.com/contract-guardian/server/internal/agent/model"
	errx "github.com/contract-guardian/server/internal/core/error"
	logx "github.com/contract-guardian/server/pkg/logger"
)

// SQLiteStore persists chunks with float32 BLOB vectors. Vectors are loaded
// into memory for exact cosine search.
type SQLiteStore struct {
	db         *sql.DB
	collection string
	index      *Index
}

// OpenSQLite opens a database file with the pure-Go driver.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errx.WrapStorage(err)
	}
	// a single connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)
	return db, nil
}

// OpenSQLiteStore migrates the schema and loads the collection.
func OpenSQLiteStore(ctx context.Context, db *sql.DB, collection string) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, collection: collection, index: NewIndex()}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("sqlite migrate: %w", errx.WrapStorage(err))
	}
	if err := s.load(ctx); err != nil {
		return nil, fmt.Errorf("sqlite load: %w", errx.WrapStorage(err))
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chunks (
			collection TEXT NOT NULL,
			seq        INTEGER NOT NULL,
			chunk_id   TEXT NOT NULL,
			source     TEXT NOT NULL,
			content    TEXT NOT NULL,
			embedding  BLOB NOT NULL,
			dimensions INTEGER NOT NULL,
			PRIMARY KEY (collection, seq)
		)
	`)
	return err
}

func (s *SQLiteStore) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, source, content, embedding, dimensions
		FROM chunks WHERE collection = ? ORDER BY seq
	`, s.collection)
	if err != nil {
		return err
	}
	defer rows.Close()

	var chunks []model.Chunk
	for rows.Next() {
		var c model.Chunk
		var blob []byte
		var dims int
		if err := rows.Scan(&c.ID, &c.Source, &c.Text, &blob, &dims); err != nil {
			return err
		}
		c.Vector = blobToFloat32(blob, dims)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	logx.Debug().Str("collection", s.collection).Int("chunks", len(chunks)).Msg("loaded knowledge from sqlite")
	return s.index.Add(ctx, chunks)
}

// Reset deletes the collection rows and clears the index.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE collection = ?", s.collection); err != nil {
		return errx.WrapStorage(err)
	}
	return s.index.Reset(ctx)
}

// Add inserts chunks in one transaction and indexes them.
func (s *SQLiteStore) Add(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	next, err := s.Count(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errx.WrapStorage(err)
	}
	defer tx.Rollback()

	if err := s.insert(ctx, tx, next, chunks); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errx.WrapStorage(err)
	}
	return s.index.Add(ctx, chunks)
}

// Replace deletes and reinserts the collection in one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, chunks []model.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errx.WrapStorage(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE collection = ?", s.collection); err != nil {
		return errx.WrapStorage(err)
	}
	if err := s.insert(ctx, tx, 0, chunks); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errx.WrapStorage(err)
	}
	return s.index.Replace(ctx, chunks)
}

func (s *SQLiteStore) insert(ctx context.Context, tx *sql.Tx, start int, chunks []model.Chunk) error {
	for i, c := range chunks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (collection, seq, chunk_id, source, content, embedding, dimensions)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, s.collection, start+i, c.ID, c.Source, c.Text, float32ToBlob(c.Vector), len(c.Vector))
		if err != nil {
			return errx.WrapStorage(fmt.Errorf("insert chunk %s: %w", c.ID, err))
		}
	}
	return nil
}

// Search delegates to the in-process index.
func (s *SQLiteStore) Search(ctx context.Context, vector []float32, k int) ([]model.ScoredChunk, error) {
	return s.index.Search(ctx, vector, k)
}

// Count returns the number of persisted chunks in the collection.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE collection = ?", s.collection).Scan(&n)
	if err != nil {
		return 0, errx.WrapStorage(err)
	}
	return n, nil
}

func float32ToBlob(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func blobToFloat32(b []byte, dims int) []float32 {
	if len(b) < dims*4 {
		dims = len(b) / 4
	}
	v := make([]float32, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

var _ model.KnowledgeStore = (*SQLiteStore)(nil)
