package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/artpar/routegen/ports"
)

func record(i int, at time.Time) ports.CallRecord {
	return ports.CallRecord{ID: fmt.Sprintf("call-%d", i), Namespace: "repos", Function: "get", CreatedAt: at}
}

func TestJournal_RecentNewestFirst(t *testing.T) {
	j := NewJournal(10)
	ctx := context.Background()
	base := time.Now()

	for i := 1; i <= 3; i++ {
		_ = j.Record(ctx, record(i, base.Add(time.Duration(i)*time.Second)))
	}

	recs, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].ID != "call-3" || recs[1].ID != "call-2" {
		t.Errorf("Recent(2) = %v", recs)
	}

	all, _ := j.Recent(ctx, 0)
	if len(all) != 3 {
		t.Errorf("Recent(0) = %d records, want all 3", len(all))
	}
}

func TestJournal_Capacity(t *testing.T) {
	j := NewJournal(2)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_ = j.Record(ctx, record(i, time.Now()))
	}

	recs, _ := j.Recent(ctx, 10)
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0].ID != "call-5" || recs[1].ID != "call-4" {
		t.Errorf("kept = %s, %s", recs[0].ID, recs[1].ID)
	}
}

func TestJournal_Prune(t *testing.T) {
	j := NewJournal(0)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_ = j.Record(ctx, record(i, base.Add(time.Duration(i)*time.Hour)))
	}

	n, _ := j.Prune(ctx, base.Add(time.Hour))
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}
	recs, _ := j.Recent(ctx, 0)
	if len(recs) != 3 {
		t.Errorf("remaining = %d, want 3", len(recs))
	}
}
