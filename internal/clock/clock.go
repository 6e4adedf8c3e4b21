// Package clock is the single source of "now" and "today" for the engine.
package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/grove/internal/utils"
)

// Clock yields the current instant in the user's local time
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in a fixed location
type System struct {
	loc *time.Location
}

// NewSystem returns a wall clock for an IANA timezone name ("" or "Local" for the system zone)
func NewSystem(timezone string) (*System, error) {
	loc, err := utils.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return &System{loc: loc}, nil
}

func (s *System) Now() time.Time {
	return time.Now().In(s.loc)
}

// Fixed is a manually driven clock for tests and replays
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the clock forward by d
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// AdvanceDays moves the clock forward by n calendar days
func (f *Fixed) AdvanceDays(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.AddDate(0, 0, n)
}

// Today returns the clock's calendar day as YYYY-MM-DD
func Today(c Clock) string {
	return utils.DayKey(c.Now())
}
