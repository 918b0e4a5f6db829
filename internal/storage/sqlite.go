package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/ragbench/internal/models"
)

// SQLiteStorage implements Storage using SQLite. The database lives in a single file:
// the rollback journal is used instead of WAL so no sidecar files outlive a connection.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a SQLite database at dbPath and initializes the schema.
// The parent directory must already exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=DELETE"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// OpenSQLiteStorage opens an existing database read-only. The handle keeps a single
// connection for its lifetime, so it keeps reading the file it opened even after a
// rebuild renames a new index.meta into the same path.
func OpenSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		source TEXT NOT NULL,
		page INTEGER NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);

	CREATE TABLE IF NOT EXISTS index_info (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		info TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// BatchCreateChunks inserts multiple chunks in a transaction.
func (s *SQLiteStorage) BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, source, page, chunk_index, content)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Source, c.Page, c.ChunkIndex, c.Content); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// GetChunks returns the chunks with the given IDs, keyed by ID. Unknown IDs are omitted.
func (s *SQLiteStorage) GetChunks(ctx context.Context, ids []string) (map[string]*models.Chunk, error) {
	out := make(map[string]*models.Chunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, source, page, chunk_index, content
		 FROM chunks WHERE id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Source, &c.Page, &c.ChunkIndex, &c.Content); err != nil {
			return nil, err
		}
		out[c.ID] = &c
	}
	return out, rows.Err()
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Sources returns the distinct source file names, sorted.
func (s *SQLiteStorage) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT source FROM chunks ORDER BY source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// PutInfo stores the build information, replacing any previous value.
func (s *SQLiteStorage) PutInfo(ctx context.Context, info *IndexInfo) error {
	if info.BuiltAt.IsZero() {
		info.BuiltAt = time.Now().UTC()
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal index info: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO index_info (id, info) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET info = excluded.info`, string(data))
	return err
}

// Info returns the stored build information.
func (s *SQLiteStorage) Info(ctx context.Context) (*IndexInfo, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT info FROM index_info WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("index info not found")
	}
	if err != nil {
		return nil, err
	}
	var info IndexInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index info: %w", err)
	}
	return &info, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
