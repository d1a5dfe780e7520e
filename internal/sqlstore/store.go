// Package sqlstore is a SQLite descriptor store. It is the default backend
// for long-running processes, where several writers share one database.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/probekit/probekit/internal/descriptor"
	pkerrors "github.com/probekit/probekit/internal/errors"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// DefaultFile is the database file name inside the data directory.
const DefaultFile = "probekit.db"

// Store persists descriptors in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, creating its directory.
// Applies pragmas and the schema; safe to call on an existing database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// CreateOrIgnore inserts descriptors whose (id, revision) is not stored yet.
func (s *Store) CreateOrIgnore(ctx context.Context, ds []descriptor.Descriptor) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, d := range ds {
			row, err := toRow(&d)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO descriptors (id, revision, payload, auto_update, rejected_revision, installed_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(id, revision) DO NOTHING
			`, row.id, row.revision, row.payload, row.autoUpdate, row.rejected, row.installedAt)
			if err != nil {
				return fmt.Errorf("insert descriptor %s: %w", d.Key(), err)
			}
		}
		return nil
	})
}

// CreateOrUpdate inserts or replaces descriptors by (id, revision). The
// stored rejected revision of an id is kept; only SetRejectedRevision
// changes it.
func (s *Store) CreateOrUpdate(ctx context.Context, ds []descriptor.Descriptor) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, d := range ds {
			row, err := toRow(&d)
			if err != nil {
				return err
			}

			var stored sql.NullInt64
			err = tx.QueryRowContext(ctx, `
				SELECT rejected_revision FROM descriptors
				WHERE id = ?
				ORDER BY revision DESC
				LIMIT 1
			`, row.id).Scan(&stored)
			switch {
			case err == sql.ErrNoRows:
			case err != nil:
				return fmt.Errorf("read rejected revision of %s: %w", d.ID, err)
			default:
				row.rejected = stored
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO descriptors (id, revision, payload, auto_update, rejected_revision, installed_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(id, revision) DO UPDATE SET
					payload = excluded.payload,
					auto_update = excluded.auto_update,
					rejected_revision = excluded.rejected_revision,
					installed_at = excluded.installed_at
			`, row.id, row.revision, row.payload, row.autoUpdate, row.rejected, row.installedAt)
			if err != nil {
				return fmt.Errorf("upsert descriptor %s: %w", d.Key(), err)
			}
		}
		return nil
	})
}

// ListAll returns every stored revision in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]descriptor.Descriptor, error) {
	return s.query(ctx, `
		SELECT payload, auto_update, rejected_revision, installed_at
		FROM descriptors
		ORDER BY rowid ASC
	`)
}

// ListLatest returns the highest revision of each id, ordered by the first
// insertion of the id.
func (s *Store) ListLatest(ctx context.Context) ([]descriptor.Descriptor, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return descriptor.Latest(all), nil
}

// SetRejectedRevision records (or clears, when revision is nil) the declined
// revision on every stored revision of id.
func (s *Store) SetRejectedRevision(ctx context.Context, id string, revision *int64) error {
	var value sql.NullInt64
	if revision != nil {
		value = sql.NullInt64{Int64: *revision, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `UPDATE descriptors SET rejected_revision = ? WHERE id = ?`, value, id)
	if err != nil {
		return pkerrors.NewStateError("failed to update rejected revision", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pkerrors.NewStateError("failed to update rejected revision", err)
	}
	if n == 0 {
		return pkerrors.NewDescriptorNotFoundError(id)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pkerrors.NewStateError("failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return pkerrors.NewStateError("failed to write descriptors", err)
	}
	if err := tx.Commit(); err != nil {
		return pkerrors.NewStateError("failed to commit descriptors", err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]descriptor.Descriptor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkerrors.NewStateError("failed to query descriptors", err)
	}
	defer rows.Close()

	var out []descriptor.Descriptor
	for rows.Next() {
		d, err := scanDescriptor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, pkerrors.NewStateError("failed to iterate descriptors", err)
	}
	return out, nil
}

// row is the column form of a descriptor.
type row struct {
	id          string
	revision    int64
	payload     string
	autoUpdate  bool
	rejected    sql.NullInt64
	installedAt sql.NullString
}

func toRow(d *descriptor.Descriptor) (row, error) {
	// Client-owned fields live in their own columns.
	payload := d.Clone()
	payload.AutoUpdate = false
	payload.RejectedRevision = nil
	payload.DateInstalled = nil

	data, err := json.Marshal(payload)
	if err != nil {
		return row{}, fmt.Errorf("marshal descriptor %s: %w", d.Key(), err)
	}

	r := row{
		id:         d.ID,
		revision:   d.Revision,
		payload:    string(data),
		autoUpdate: d.AutoUpdate,
	}
	if d.RejectedRevision != nil {
		r.rejected = sql.NullInt64{Int64: *d.RejectedRevision, Valid: true}
	}
	if d.DateInstalled != nil {
		r.installedAt = sql.NullString{String: d.DateInstalled.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	return r, nil
}

func scanDescriptor(rows *sql.Rows) (descriptor.Descriptor, error) {
	var (
		payload     string
		autoUpdate  bool
		rejected    sql.NullInt64
		installedAt sql.NullString
	)
	if err := rows.Scan(&payload, &autoUpdate, &rejected, &installedAt); err != nil {
		return descriptor.Descriptor{}, pkerrors.NewStateError("failed to scan descriptor", err)
	}

	var d descriptor.Descriptor
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return descriptor.Descriptor{}, pkerrors.NewDescriptorParseError("", err)
	}
	d.AutoUpdate = autoUpdate
	if rejected.Valid {
		r := rejected.Int64
		d.RejectedRevision = &r
	}
	if installedAt.Valid {
		ts, err := time.Parse(time.RFC3339Nano, installedAt.String)
		if err != nil {
			return descriptor.Descriptor{}, pkerrors.NewDescriptorParseError(d.ID, err)
		}
		d.DateInstalled = &ts
	}
	return d, nil
}
