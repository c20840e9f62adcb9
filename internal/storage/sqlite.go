package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/enfance/internal/models"
)

// ErrNotFound is returned when a segment does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStorage implements SegmentStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private
// in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	inMemory := dbPath == ":memory:"
	if dir := filepath.Dir(dbPath); !inMemory && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS segments (
		id INTEGER PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		section INTEGER,
		content TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS imports (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		segment_count INTEGER NOT NULL,
		imported_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_imports_imported_at ON imports(imported_at);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceSegments deletes the current corpus and inserts segments in a transaction.
// Segment IDs are kept as given.
func (s *SQLiteStorage) ReplaceSegments(ctx context.Context, source string, segments []*models.Segment) (*Import, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM segments`); err != nil {
		return nil, fmt.Errorf("failed to clear segments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO segments (id, label, url, source, section, content)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, seg := range segments {
		var section sql.NullInt64
		if seg.Section != nil {
			section = sql.NullInt64{Int64: int64(*seg.Section), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, seg.ID, seg.Label, seg.URL, seg.Source, section, seg.Content); err != nil {
			return nil, fmt.Errorf("failed to insert segment %d: %w", seg.ID, err)
		}
	}

	imp := &Import{
		ID:           uuid.NewString(),
		Source:       source,
		SegmentCount: len(segments),
		ImportedAt:   time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO imports (id, source, segment_count, imported_at) VALUES (?, ?, ?, ?)`,
		imp.ID, imp.Source, imp.SegmentCount, imp.ImportedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return imp, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSegment(row scanner) (*models.Segment, error) {
	var seg models.Segment
	var section sql.NullInt64
	if err := row.Scan(&seg.ID, &seg.Label, &seg.URL, &seg.Source, &section, &seg.Content); err != nil {
		return nil, err
	}
	if section.Valid {
		v := int(section.Int64)
		seg.Section = &v
	}
	return &seg, nil
}

// ListSegments returns all segments ordered by ID.
func (s *SQLiteStorage) ListSegments(ctx context.Context) ([]*models.Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, url, source, section, content FROM segments ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []*models.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// GetSegment returns a segment by ID.
func (s *SQLiteStorage) GetSegment(ctx context.Context, id int) (*models.Segment, error) {
	seg, err := scanSegment(s.db.QueryRowContext(ctx,
		`SELECT id, label, url, source, section, content FROM segments WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("segment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// CountSegments returns the total number of segments.
func (s *SQLiteStorage) CountSegments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM segments`).Scan(&count)
	return count, err
}

// LastImport returns the most recent import, or nil if none was recorded.
func (s *SQLiteStorage) LastImport(ctx context.Context) (*Import, error) {
	var imp Import
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, segment_count, imported_at FROM imports ORDER BY imported_at DESC, rowid DESC LIMIT 1`,
	).Scan(&imp.ID, &imp.Source, &imp.SegmentCount, &imp.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
