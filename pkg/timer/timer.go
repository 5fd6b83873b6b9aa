package timer

import (
	"fmt"
	"time"
)

// Timer measures wall time of an operation for metrics and logs.
type Timer struct {
	Started  time.Time
	duration time.Duration
}

func Start() *Timer {
	return &Timer{Started: time.Now()}
}

// Stop freezes the measured duration and returns it in seconds.
// Subsequent calls return the same value.
func (t *Timer) Stop() float64 {
	if t.duration == 0 {
		t.duration = time.Since(t.Started)
	}
	return t.duration.Seconds()
}

// Duration returns seconds elapsed so far, or the frozen value after Stop.
func (t *Timer) Duration() float64 {
	return t.Elapsed().Seconds()
}

func (t *Timer) Elapsed() time.Duration {
	if t.duration == 0 {
		return time.Since(t.Started)
	}
	return t.duration
}

func (t *Timer) String() string {
	return fmt.Sprintf("%.2f", t.Duration())
}
