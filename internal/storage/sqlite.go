package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite limits bound parameters per statement; lookups are chunked below it.
const maxQueryParams = 500

// SQLiteCache implements EmbeddingStore using SQLite.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		model TEXT NOT NULL,
		text_hash TEXT NOT NULL,
		position INTEGER NOT NULL,
		dims INTEGER NOT NULL,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (model, text_hash)
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_model_position ON embeddings(model, position);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns cached vectors for the given hashes. Missing hashes are absent
// from the map.
func (s *SQLiteCache) Get(ctx context.Context, model string, hashes []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(hashes))
	for lo := 0; lo < len(hashes); lo += maxQueryParams {
		chunk := hashes[lo:min(lo+maxQueryParams, len(hashes))]
		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, model)
		for _, h := range chunk {
			args = append(args, h)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		rows, err := s.db.QueryContext(ctx,
			`SELECT text_hash, dims, vector FROM embeddings
			 WHERE model = ? AND text_hash IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var hash string
			var dims int
			var blob []byte
			if err := rows.Scan(&hash, &dims, &blob); err != nil {
				rows.Close()
				return nil, err
			}
			if len(blob) != dims*4 {
				continue
			}
			out[hash] = decodeVector(blob)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// Put upserts records in a single transaction.
func (s *SQLiteCache) Put(ctx context.Context, model string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO embeddings (model, text_hash, position, dims, vector, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, model, r.Hash, r.Position, len(r.Vector), encodeVector(r.Vector), now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to store embedding %s: %w", r.Hash, err)
		}
	}
	return tx.Commit()
}

// Retain deletes the model's rows whose hash is not in keep and returns how
// many were removed.
func (s *SQLiteCache) Retain(ctx context.Context, model string, keep []string) (int64, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, h := range keep {
		keepSet[h] = struct{}{}
	}
	rows, err := s.db.QueryContext(ctx, `SELECT text_hash FROM embeddings WHERE model = ?`, model)
	if err != nil {
		return 0, err
	}
	var stale []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			rows.Close()
			return 0, err
		}
		if _, ok := keepSet[h]; !ok {
			stale = append(stale, h)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()
	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	var removed int64
	for _, h := range stale {
		res, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE model = ? AND text_hash = ?`, model, h)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	return removed, tx.Commit()
}

// Count returns the number of cached embeddings for model.
func (s *SQLiteCache) Count(ctx context.Context, model string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings WHERE model = ?`, model).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(x))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
