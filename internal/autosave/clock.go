package autosave

import "time"

// Clock abstracts time and timer scheduling so debounce, max-wait, and
// retry backoff are testable without waiting on real time.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancelable scheduled call. Stop reports whether the call was
// prevented from running.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return systemTimer{time.AfterFunc(d, f)}
}

type systemTimer struct {
	t *time.Timer
}

func (t systemTimer) Stop() bool {
	return t.t.Stop()
}

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}
