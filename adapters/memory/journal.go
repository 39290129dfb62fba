// Package memory provides in-memory implementations of ports.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/artpar/routegen/ports"
)

// DefaultJournalSize bounds the in-memory journal.
const DefaultJournalSize = 1000

// Journal is an in-memory implementation of ports.CallJournal.
// It keeps the most recent records up to its capacity.
type Journal struct {
	mu      sync.RWMutex
	records []ports.CallRecord
	size    int
}

// NewJournal creates a journal holding at most size records.
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &Journal{size: size}
}

// Record stores a completed call, evicting the oldest record when full.
func (j *Journal) Record(ctx context.Context, rec ports.CallRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.records = append(j.records, rec)
	if over := len(j.records) - j.size; over > 0 {
		j.records = append(j.records[:0:0], j.records[over:]...)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]ports.CallRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 || limit > len(j.records) {
		limit = len(j.records)
	}
	out := make([]ports.CallRecord, 0, limit)
	for i := len(j.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, j.records[i])
	}
	return out, nil
}

// Prune deletes records created before the given time.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	kept := j.records[:0]
	for _, rec := range j.records {
		if !rec.CreatedAt.Before(before) {
			kept = append(kept, rec)
		}
	}
	removed := len(j.records) - len(kept)
	j.records = kept
	return removed, nil
}

var _ ports.CallJournal = (*Journal)(nil)
