// Package auditlog keeps a local SQLite journal of every audit record, so the
// history can be listed without scanning run tags on the tracking server.
package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spboyer/evalgate/internal/models"
	_ "modernc.org/sqlite"
)

const schemaSQL = `
PRAGMA journal_mode=WAL;
PRAGMA busy_timeout=5000;

CREATE TABLE IF NOT EXISTS audit_records (
  id TEXT PRIMARY KEY,
  action TEXT NOT NULL,
  prompt_name TEXT NOT NULL,
  from_version INTEGER NOT NULL,
  to_version INTEGER NOT NULL,
  alias TEXT NOT NULL,
  created_at TEXT NOT NULL,
  actor TEXT NOT NULL,
  reason TEXT NOT NULL,
  run_ids TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_records_prompt ON audit_records(prompt_name, created_at);
`

// timeLayout is fixed width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Journal is an append-only audit record store.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path. ":memory:" is accepted.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit journal: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and pragmas stable.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing audit journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append stores rec. Records are never updated, so appending an existing ID fails.
func (j *Journal) Append(ctx context.Context, rec models.AuditRecord) error {
	_, err := j.db.ExecContext(ctx, `
INSERT INTO audit_records (id, action, prompt_name, from_version, to_version, alias, created_at, actor, reason, run_ids)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Action), rec.PromptName, rec.FromVersion, rec.ToVersion, rec.Alias,
		rec.Timestamp.UTC().Format(timeLayout), rec.Actor, rec.Reason, strings.Join(rec.RunIDs, ","))
	if err != nil {
		return fmt.Errorf("appending audit record %s: %w", rec.ID, err)
	}
	return nil
}

// List returns records oldest first. A non-empty promptName restricts the result
// to that prompt; limit <= 0 means no limit.
func (j *Journal) List(ctx context.Context, promptName string, limit int) ([]models.AuditRecord, error) {
	query := `SELECT id, action, prompt_name, from_version, to_version, alias, created_at, actor, reason, run_ids
FROM audit_records`
	var args []any
	if promptName != "" {
		query += ` WHERE prompt_name = ?`
		args = append(args, promptName)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}
	defer rows.Close()

	records := []models.AuditRecord{}
	for rows.Next() {
		var (
			rec       models.AuditRecord
			action    string
			createdAt string
			runIDs    string
		)
		if err := rows.Scan(&rec.ID, &action, &rec.PromptName, &rec.FromVersion, &rec.ToVersion,
			&rec.Alias, &createdAt, &rec.Actor, &rec.Reason, &runIDs); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		rec.Action = models.AuditAction(action)
		rec.Timestamp, _ = time.Parse(timeLayout, createdAt)
		rec.RunIDs = []string{}
		if runIDs != "" {
			rec.RunIDs = strings.Split(runIDs, ",")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
