// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records every conversion attempt in a local SQLite
// database so repeated runs on the same input can be compared.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/litecompat/pkg/types"
)

// DefaultPath is the ledger location relative to the working directory.
const DefaultPath = ".litecompat/ledger.db"

const defaultLimit = 20

// Store manages the ledger database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the ledger at path, creating its directory and
// schema when missing.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			input TEXT NOT NULL,
			format TEXT,
			output TEXT,
			flags TEXT NOT NULL,
			backend TEXT,
			converter_version TEXT,
			status TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			sha256 TEXT,
			error TEXT,
			created_at TEXT NOT NULL,
			fc_versions TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_input ON runs(input)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// Ledgers created before fc_versions existed gain the column here.
	if _, err := s.db.Exec(`ALTER TABLE runs ADD COLUMN fc_versions TEXT`); err != nil &&
		!strings.Contains(err.Error(), "duplicate column") {
		return fmt.Errorf("adding fc_versions column: %w", err)
	}
	return nil
}

// Record appends one conversion attempt. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, rec types.RunRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (input, format, output, flags, backend, converter_version,
			status, size, sha256, error, created_at, fc_versions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Input, string(rec.Format), rec.Output, rec.Flags, rec.Backend, rec.ConverterVersion,
		string(rec.Status), rec.Size, rec.SHA256, rec.Error,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano), joinVersions(rec.FCVersions),
	)
	if err != nil {
		return fmt.Errorf("recording run for %s: %w", rec.Input, err)
	}
	return nil
}

// HistoryOptions filters History.
type HistoryOptions struct {
	// Input restricts results to one input path.
	Input string

	// Limit caps the result count. Zero uses the store default.
	Limit int
}

// History returns recorded runs, newest first.
func (s *Store) History(ctx context.Context, opts HistoryOptions) ([]types.RunRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, format, output, flags, backend, converter_version,
			status, size, sha256, error, created_at, fc_versions
		FROM runs
		WHERE ? = '' OR input = ?
		ORDER BY id DESC
		LIMIT ?`,
		opts.Input, opts.Input, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []types.RunRecord
	for rows.Next() {
		var (
			rec                       types.RunRecord
			format, status, createdAt string
			output, backend, version  sql.NullString
			sha, errText, fc          sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Input, &format, &output, &rec.Flags, &backend, &version,
			&status, &rec.Size, &sha, &errText, &createdAt, &fc); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		rec.Format = types.ModelFormat(format)
		rec.Status = types.ConversionStatus(status)
		rec.Output = output.String
		rec.Backend = backend.String
		rec.ConverterVersion = version.String
		rec.SHA256 = sha.String
		rec.Error = errText.String
		if fc.Valid {
			rec.FCVersions = splitVersions(fc.String)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DriftEntry groups successful runs that share input, flags and converter
// version. Sizes lists each distinct output byte length seen.
type DriftEntry struct {
	Input            string  `json:"input" yaml:"input"`
	Flags            string  `json:"flags" yaml:"flags"`
	ConverterVersion string  `json:"converter_version" yaml:"converter_version"`
	Runs             int     `json:"runs" yaml:"runs"`
	Sizes            []int64 `json:"sizes" yaml:"sizes"`
}

// Drifted reports whether identical runs produced different byte lengths.
func (d DriftEntry) Drifted() bool {
	return len(d.Sizes) > 1
}

// Drift reports byte-length reproducibility for successful runs, optionally
// restricted to one input.
func (s *Store) Drift(ctx context.Context, input string) ([]DriftEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT input, flags, COALESCE(converter_version, ''), size, COUNT(*)
		FROM runs
		WHERE status = ? AND (? = '' OR input = ?)
		GROUP BY input, flags, converter_version, size
		ORDER BY input, flags, converter_version, size`,
		string(types.ConversionDone), input, input)
	if err != nil {
		return nil, fmt.Errorf("querying drift: %w", err)
	}
	defer rows.Close()

	var out []DriftEntry
	for rows.Next() {
		var (
			e     DriftEntry
			size  int64
			count int
		)
		if err := rows.Scan(&e.Input, &e.Flags, &e.ConverterVersion, &size, &count); err != nil {
			return nil, fmt.Errorf("scanning drift row: %w", err)
		}

		n := len(out)
		if n > 0 && out[n-1].Input == e.Input && out[n-1].Flags == e.Flags && out[n-1].ConverterVersion == e.ConverterVersion {
			out[n-1].Runs += count
			out[n-1].Sizes = append(out[n-1].Sizes, size)
			continue
		}
		e.Runs = count
		e.Sizes = []int64{size}
		out = append(out, e)
	}
	return out, rows.Err()
}

// joinVersions stores versions as a comma-separated list. Nil (not verified)
// is stored as NULL.
func joinVersions(v []int32) any {
	if v == nil {
		return nil
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(int(n))
	}
	return strings.Join(parts, ",")
}

func splitVersions(s string) []int32 {
	out := []int32{}
	if s == "" {
		return out
	}
	for _, p := range strings.Split(s, ",") {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			continue
		}
		out = append(out, int32(n))
	}
	return out
}
