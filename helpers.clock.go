package main

import (
	"time"
)

var _ Clocker = (*Clock)(nil)

// Clocker abstracts the current time so the services and their tests
// control what now means.
type Clocker interface {
	Now() time.Time
}

// Clock is the runtime Clocker backed by the system time.
type Clock struct {
	tz *time.Location
}

// NewClock builds a clock pinned to UTC in production and to the local
// timezone in dev environments.
func NewClock(isProd bool) *Clock {
	if isProd {
		return &Clock{time.UTC}
	}
	return &Clock{time.Local}
}

// Now reports the current time in the clock timezone.
func (ck *Clock) Now() time.Time {
	return time.Now().In(ck.tz)
}
