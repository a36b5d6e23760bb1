package period

import "time"

// Clock supplies "now". Services take a Clock instead of calling time.Now.
type Clock func() time.Time

// SystemClock reads the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
}

// Fixed always returns t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}
