package utils

import "time"

// Now returns the current UTC time truncated to microseconds, matching
// postgres timestamp precision so round-tripped values compare equal.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func NowPtr() *time.Time {
	now := Now()
	return &now
}

func TimePtr(t time.Time) *time.Time {
	return &t
}
