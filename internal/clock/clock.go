// Package clock provides the injectable clock the pricing core reads from.
// Services take its Now method as a plain func() time.Time, so tests and the
// dev time-travel endpoint can shift time without any global state.
package clock

import (
	"errors"
	"sync"
	"time"
)

// ErrOffsetDisabled is returned when time travel is not enabled for this
// environment.
var ErrOffsetDisabled = errors.New("clock offset is disabled")

// Clock produces readings in a fixed operating timezone, optionally shifted
// by a mutable offset for simulating temporal promotions.
type Clock struct {
	loc         *time.Location
	allowOffset bool

	mu     sync.RWMutex
	offset time.Duration
}

// New builds a Clock pinned to the given location. allowOffset gates the
// dev-only time travel feature.
func New(loc *time.Location, allowOffset bool) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, allowOffset: allowOffset}
}

// Now returns the current instant in the operating timezone, shifted by the
// configured offset. Callers read it once per repricing pass.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	offset := c.offset
	c.mu.RUnlock()
	return time.Now().Add(offset).In(c.loc)
}

// SetOffset replaces the time-travel offset.
func (c *Clock) SetOffset(offset time.Duration) error {
	if !c.allowOffset {
		return ErrOffsetDisabled
	}
	c.mu.Lock()
	c.offset = offset
	c.mu.Unlock()
	return nil
}

// Reset clears any configured offset.
func (c *Clock) Reset() error {
	return c.SetOffset(0)
}

// Offset reports the currently configured offset.
func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Location exposes the operating timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}
