package idgen_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/artpar/routegen/adapters/idgen"
)

func TestUUID_New(t *testing.T) {
	id := idgen.UUID{}.New()

	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("uuid.Parse(%q) error = %v", id, err)
	}
	if parsed.Version() != 7 {
		t.Errorf("Version() = %d, want 7", parsed.Version())
	}
}

func TestUUID_Ordered(t *testing.T) {
	g := idgen.UUID{}
	prev := g.New()
	for i := 0; i < 100; i++ {
		next := g.New()
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestSequential(t *testing.T) {
	g := idgen.NewSequential("call-")
	if got := g.New(); got != "call-1" {
		t.Errorf("first id = %q, want call-1", got)
	}
	if got := g.New(); got != "call-2" {
		t.Errorf("second id = %q, want call-2", got)
	}
}

func TestSequential_Concurrent(t *testing.T) {
	g := idgen.NewSequential("")
	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.New()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 50 {
		t.Errorf("unique ids = %d, want 50", len(seen))
	}
}
