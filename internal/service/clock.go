package service

import "time"

// Clock returns the current instant in the site timezone.
type Clock func() time.Time

// SiteClock reads the wall clock in loc.
func SiteClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
}

// FixedClock always returns t. Used by jobs replaying a past day.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
