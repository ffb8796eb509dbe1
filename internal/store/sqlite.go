package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/layered-memory/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection per process: concurrent turns queue on the pool instead
	// of failing a deferred read-to-write upgrade with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func newRev() string {
	return ulid.Make().String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resources (
		id             TEXT PRIMARY KEY,
		working_memory TEXT,
		metadata       TEXT NOT NULL DEFAULT '{}',
		rev            TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_resources_updated ON resources(updated_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const resourceColumns = `id, working_memory, metadata, rev, created_at, updated_at`

func (s *SQLiteStore) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)
	r, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get resource %s: %w", id, err)
	}
	return &r, nil
}

func (s *SQLiteStore) UpdateResource(ctx context.Context, p UpdateParams) (*model.Resource, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("update resource: id is required")
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	existing, err := scanResource(tx.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = ?`, p.ID))
	found := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read resource %s: %w", p.ID, err)
	}

	next := model.Resource{
		ID:        p.ID,
		Metadata:  model.Document{},
		Rev:       newRev(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if found {
		next.WorkingMemory = existing.WorkingMemory
		next.Metadata = existing.Metadata
		next.CreatedAt = existing.CreatedAt
	}
	if p.WorkingMemory != nil {
		wm := *p.WorkingMemory
		next.WorkingMemory = &wm
	}
	if p.Metadata != nil {
		next.Metadata = next.Metadata.Merge(p.Metadata)
	}

	metaJSON, err := json.Marshal(next.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	if found {
		_, err = tx.ExecContext(ctx,
			`UPDATE resources SET working_memory = ?, metadata = ?, rev = ?, updated_at = ? WHERE id = ?`,
			next.WorkingMemory, string(metaJSON), next.Rev, now.Format(timeLayout), p.ID)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO resources (`+resourceColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, next.WorkingMemory, string(metaJSON), next.Rev,
			now.Format(timeLayout), now.Format(timeLayout))
	}
	if err != nil {
		return nil, fmt.Errorf("write resource %s: %w", p.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &next, nil
}

// ListResources lists resources whose id starts with Prefix, most recently updated first.
func (s *SQLiteStore) ListResources(ctx context.Context, p ListParams) ([]model.Resource, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources
		 WHERE id LIKE ? ESCAPE '\'
		 ORDER BY updated_at DESC
		 LIMIT ?`, likePrefix(p.Prefix), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []model.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanResource(row scanner) (model.Resource, error) {
	var r model.Resource
	var workingMemory sql.NullString
	var meta, createdAt, updatedAt string

	err := row.Scan(&r.ID, &workingMemory, &meta, &r.Rev, &createdAt, &updatedAt)
	if err != nil {
		return r, err
	}

	if workingMemory.Valid {
		wm := workingMemory.String
		r.WorkingMemory = &wm
	}
	r.Metadata = model.Document{}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			// A corrupt document reads as empty rather than failing the row.
			r.Metadata = nil
		}
	}
	if r.Metadata == nil {
		r.Metadata = model.Document{}
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return r, nil
}

func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
