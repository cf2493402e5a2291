// Package sqlite provides a SQLite-backed DefectStore so defect records
// survive process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/storage"
)

// Store is a SQLite implementation of storage.DefectStore.
type Store struct {
	db *sql.DB
}

var _ storage.DefectStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the
// schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS defects (
			corr_id TEXT PRIMARY KEY,
			classification TEXT NOT NULL,
			backend TEXT NOT NULL,
			routing_source TEXT NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			upstream_status INTEGER,
			elapsed_ms INTEGER,
			detail TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_defects_created ON defects(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_defects_classification ON defects(classification)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Record(ctx context.Context, rec *storage.DefectRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO defects
			(corr_id, classification, backend, routing_source, method, path,
			 upstream_status, elapsed_ms, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CorrID, rec.Classification, rec.Backend, rec.RoutingSource,
		rec.Method, rec.Path, rec.UpstreamStatus, rec.ElapsedMs,
		rec.Detail, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record defect: %w", err)
	}
	return nil
}

func (s *Store) GetByCorrID(ctx context.Context, corrID string) (*storage.DefectRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT corr_id, classification, backend, routing_source, method, path,
			upstream_status, elapsed_ms, detail, created_at
		 FROM defects WHERE corr_id = ?`, corrID)

	rec, err := scanDefect(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get defect: %w", err)
	}
	return rec, nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]*storage.DefectRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT corr_id, classification, backend, routing_source, method, path,
			upstream_status, elapsed_ms, detail, created_at
		 FROM defects ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list defects: %w", err)
	}
	defer rows.Close()

	var out []*storage.DefectRecord
	for rows.Next() {
		rec, err := scanDefect(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan defect: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanDefect(row scanner) (*storage.DefectRecord, error) {
	var rec storage.DefectRecord
	err := row.Scan(
		&rec.CorrID, &rec.Classification, &rec.Backend, &rec.RoutingSource,
		&rec.Method, &rec.Path, &rec.UpstreamStatus, &rec.ElapsedMs,
		&rec.Detail, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
