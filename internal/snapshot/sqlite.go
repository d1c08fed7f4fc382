// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/conectividadeproj/conectividade-mcp/internal/dataset"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	fetched_at   TEXT    NOT NULL,
	source       TEXT    NOT NULL,
	record_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot_records (
	seq            INTEGER PRIMARY KEY,
	co_municipio   TEXT NOT NULL,
	co_entidade    TEXT NOT NULL,
	tp_dependencia TEXT NOT NULL,
	in_internet    TEXT NOT NULL,
	status         TEXT NOT NULL
);`

// SQLiteStore keeps the snapshot in an SQLite database. Save replaces both
// tables inside one transaction.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("snapshot: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("snapshot: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot: schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Load(ctx context.Context) (*dataset.Dataset, error) {
	var (
		fetchedAt string
		src       string
		count     int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at, source, record_count FROM snapshot_meta WHERE id = 1`).
		Scan(&fetchedAt, &src, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: read meta: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("snapshot: parse fetched_at %q: %w", fetchedAt, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT co_municipio, co_entidade, tp_dependencia, in_internet, status
		 FROM snapshot_records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read records: %w", err)
	}
	defer rows.Close()

	records := make([]dataset.SchoolRecord, 0, count)
	for rows.Next() {
		var r dataset.SchoolRecord
		if err := rows.Scan(&r.MunicipalityCode, &r.SchoolCode, &r.Dependency, &r.Internet, &r.Status); err != nil {
			return nil, fmt.Errorf("snapshot: scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot: iterate records: %w", err)
	}

	return &dataset.Dataset{Records: records, FetchedAt: ts, Source: src}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, ds *dataset.Dataset) error {
	if ds == nil {
		return errors.New("snapshot: nil dataset")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := clearTables(ctx, tx); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO snapshot_records (seq, co_municipio, co_entidade, tp_dependencia, in_internet, status)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("snapshot: prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, r := range ds.Records {
			if _, err := stmt.ExecContext(ctx, i, r.MunicipalityCode, r.SchoolCode, r.Dependency, r.Internet, r.Status); err != nil {
				return fmt.Errorf("snapshot: insert record %d: %w", i, err)
			}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO snapshot_meta (id, fetched_at, source, record_count) VALUES (1, ?, ?, ?)`,
			ds.FetchedAt.UTC().Format(time.RFC3339Nano), ds.Source, len(ds.Records))
		if err != nil {
			return fmt.Errorf("snapshot: insert meta: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Invalidate(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error { return clearTables(ctx, tx) })
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("snapshot: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("snapshot: commit: %w", err)
	}
	return nil
}

func clearTables(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_records`); err != nil {
		return fmt.Errorf("snapshot: clear records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_meta`); err != nil {
		return fmt.Errorf("snapshot: clear meta: %w", err)
	}
	return nil
}
