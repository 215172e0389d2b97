package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"chromaflow/internal/items"
	"chromaflow/internal/logging"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// sqliteSchemaVersion is bumped whenever sqlite_schema.sql changes shape.
const sqliteSchemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible
// version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const documentColumns = "id, item, assembly, description, material, length, qty, weight, area, fp, status, shop, updated_at"

// SQLite stores the collection in a local database file. Several processes
// can share one file; subscribers notice each other's writes through a
// revision counter.
type SQLite struct {
	db           *sql.DB
	path         string
	collection   string
	pollInterval time.Duration
	logger       *slog.Logger
}

func openSQLite(_ context.Context, opts Options) (Remote, error) {
	path, err := dsnPath(opts.DSN)
	if err != nil {
		return nil, err
	}
	return OpenSQLite(path, opts)
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, opts Options) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &SQLite{
		db:           db,
		path:         path,
		collection:   opts.collection(),
		pollInterval: opts.pollInterval(),
		logger:       logging.NewComponentLogger(opts.Logger, "store.sqlite"),
	}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file location.
func (s *SQLite) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != sqliteSchemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start over)",
			ErrSchemaMismatch, version, sqliteSchemaVersion, s.path)
	}
	return nil
}

func (s *SQLite) createSchema(ctx context.Context) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, sqliteSchema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		var existing int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_version").Scan(&existing); err != nil {
			return fmt.Errorf("check schema version: %w", err)
		}
		if existing == 0 {
			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", sqliteSchemaVersion); err != nil {
				return fmt.Errorf("record schema version: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit schema: %w", err)
		}
		return nil
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// ListAll returns documents in the order of the last batch that wrote them.
func (s *SQLite) ListAll(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := retryOnBusy(ctx, func() error {
		var err error
		docs, err = s.list(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *SQLite) list(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE collection = ? ORDER BY position, id`,
		s.collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var rec items.Record
		if err := rows.Scan(
			&rec.ID, &rec.Item, &rec.Assembly, &rec.Description, &rec.Material,
			&rec.Length, &rec.Qty, &rec.Weight, &rec.Area, &rec.FP,
			&rec.Status, &rec.Shop, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, Document{ID: rec.ID, Record: rec})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// BatchWrite runs deletes and upserts in one transaction and bumps the
// collection revision. Upserts are placed after every existing document in
// the order given.
func (s *SQLite) BatchWrite(ctx context.Context, deletes []string, upserts []items.Record) error {
	return retryOnBusy(ctx, func() error {
		return s.batchWrite(ctx, deletes, upserts)
	})
}

func (s *SQLite) batchWrite(ctx context.Context, deletes []string, upserts []items.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range deletes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, s.collection, id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	}

	var base int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM documents WHERE collection = ?`, s.collection,
	).Scan(&base); err != nil {
		return fmt.Errorf("next position: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (
            collection, id, position, item, assembly, description, material,
            length, qty, weight, area, fp, status, shop, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(collection, id) DO UPDATE SET
            position = excluded.position, item = excluded.item, assembly = excluded.assembly,
            description = excluded.description, material = excluded.material,
            length = excluded.length, qty = excluded.qty, weight = excluded.weight,
            area = excluded.area, fp = excluded.fp, status = excluded.status,
            shop = excluded.shop, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range upserts {
		if _, err := stmt.ExecContext(ctx,
			s.collection, rec.ID, base+int64(i), rec.Item, rec.Assembly, rec.Description, rec.Material,
			rec.Length, rec.Qty, rec.Weight, rec.Area, rec.FP, rec.Status, rec.Shop, rec.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", rec.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO revisions (collection, value) VALUES (?, 1)
         ON CONFLICT(collection) DO UPDATE SET value = value + 1`, s.collection,
	); err != nil {
		return fmt.Errorf("bump revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Revision returns the collection's write counter.
func (s *SQLite) Revision(ctx context.Context) (int64, error) {
	var value int64
	err := retryOnBusy(ctx, func() error {
		err := s.db.QueryRowContext(ctx, `SELECT value FROM revisions WHERE collection = ?`, s.collection).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			value = 0
			return nil
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return value, nil
}
