package clock

import (
	"sync"
	"time"
)

// Clock supplies the current auction time. Every lifecycle decision
// (started, active, closed) goes through a Clock so tests can pin time.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// NewSystem returns a clock reading the wall clock in a fixed offset zone.
// Times are truncated to whole seconds so stored and derived timestamps
// compare cleanly.
func NewSystem(zoneName string, offsetHours int) Clock {
	return &systemClock{loc: time.FixedZone(zoneName, offsetHours*3600)}
}

func (c *systemClock) Now() time.Time {
	return time.Now().In(c.loc).Truncate(time.Second)
}

// Manual is a settable clock for tests.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(now time.Time) *Manual {
	return &Manual{now: now.Truncate(time.Second)}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now.Truncate(time.Second)
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
