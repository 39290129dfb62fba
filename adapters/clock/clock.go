// Package clock provides Clock implementations used to time and stamp calls.
package clock

import (
	"sync"
	"time"

	"github.com/artpar/routegen/ports"
)

// System reads the wall clock.
type System struct{}

// Now returns the current time in UTC.
func (System) Now() time.Time {
	return time.Now().UTC()
}

var _ ports.Clock = System{}

// Manual is a clock that only moves when told to. Tests use it to get
// deterministic call durations and journal timestamps.
type Manual struct {
	mu  sync.Mutex
	now time.Time
	// step is added after every Now call; zero keeps time frozen.
	step time.Duration
}

// NewManual returns a clock frozen at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Ticking returns a clock that advances by step on every reading.
func Ticking(start time.Time, step time.Duration) *Manual {
	return &Manual{now: start, step: step}
}

// Now returns the current reading and applies the step.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.now
	m.now = m.now.Add(m.step)
	return t
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

var _ ports.Clock = (*Manual)(nil)
