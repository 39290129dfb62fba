package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/artpar/routegen/ports"
)

// Journal implements ports.CallJournal using SQLite.
type Journal struct {
	db *DB
}

// NewJournal creates a journal on a migrated database.
func NewJournal(db *DB) *Journal {
	return &Journal{db: db}
}

// Record stores a completed call.
func (j *Journal) Record(ctx context.Context, rec ports.CallRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO call_journal (
			id, namespace, function, method, url, status, outcome, error, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.Namespace, rec.Function, rec.Method, rec.URL, rec.Status,
		string(rec.Outcome), rec.Error, rec.Duration.Milliseconds(), rec.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record call %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]ports.CallRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, namespace, function, method, url, status, outcome, error, duration_ms, created_at
		FROM call_journal
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []ports.CallRecord
	for rows.Next() {
		var (
			rec        ports.CallRecord
			outcome    string
			durationMs int64
			createdMs  int64
		)
		if err := rows.Scan(&rec.ID, &rec.Namespace, &rec.Function, &rec.Method, &rec.URL,
			&rec.Status, &outcome, &rec.Error, &durationMs, &createdMs); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		rec.Outcome = ports.Outcome(outcome)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune deletes records created before the given time.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := j.db.ExecContext(ctx, "DELETE FROM call_journal WHERE created_at < ?", before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

var _ ports.CallJournal = (*Journal)(nil)
