// internal/clock/clock.go

// Package clock abstracts wall time and delayed callbacks so timer-driven
// behaviour (typing expiry, facilitator delays, prompt sweeps) can be driven
// deterministically in tests.
package clock

import "time"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Handle is a scheduled callback that can still be cancelled.
type Handle interface {
	// Cancel stops the callback. It reports false if the callback already
	// ran or was cancelled before.
	Cancel() bool
}

// Scheduler runs fn once after d has elapsed.
type Scheduler interface {
	After(d time.Duration, fn func()) Handle
}

// Real is the production clock backed by the time package.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) After(d time.Duration, fn func()) Handle {
	return realHandle{timer: time.AfterFunc(d, fn)}
}

type realHandle struct {
	timer *time.Timer
}

func (h realHandle) Cancel() bool {
	return h.timer.Stop()
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
