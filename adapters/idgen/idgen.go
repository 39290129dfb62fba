// Package idgen provides call id generation.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/artpar/routegen/ports"
)

// UUID generates time-ordered UUIDs (version 7) so journal ids sort by creation.
type UUID struct{}

// New returns a new UUID, falling back to version 4 if the v7 source fails.
func (UUID) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

var _ ports.IDGenerator = UUID{}

// Sequential generates predictable ids for tests.
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential generator, e.g. "call-1", "call-2".
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New returns the next id.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

var _ ports.IDGenerator = (*Sequential)(nil)
