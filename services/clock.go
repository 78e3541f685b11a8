package services

import "time"

// DayFormat is the canonical layout for credited calendar days. All day
// arithmetic happens in UTC so the day boundary is stable regardless of the
// server or user timezone.
const DayFormat = "2006-01-02"

// Clock supplies the current wall-clock time. It is injected into the points
// service so streak and milestone logic is deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock { return systemClock{} }

// Today returns the clock's current UTC calendar day.
func Today(c Clock) string {
	return c.Now().UTC().Format(DayFormat)
}

// PrevDay returns the calendar day before d. Malformed days map to the zero
// date rather than panicking; callers validate days at the API boundary.
func PrevDay(d string) string {
	t, err := time.ParseInLocation(DayFormat, d, time.UTC)
	if err != nil {
		return time.Time{}.Format(DayFormat)
	}
	return t.AddDate(0, 0, -1).Format(DayFormat)
}

// AddDays returns the calendar day n days after d.
func AddDays(d string, n int) string {
	t, err := time.ParseInLocation(DayFormat, d, time.UTC)
	if err != nil {
		return time.Time{}.Format(DayFormat)
	}
	return t.AddDate(0, 0, n).Format(DayFormat)
}

// DayDiff returns the number of calendar days from a to b.
func DayDiff(a, b string) int {
	ta, errA := time.ParseInLocation(DayFormat, a, time.UTC)
	tb, errB := time.ParseInLocation(DayFormat, b, time.UTC)
	if errA != nil || errB != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}

// ValidDay reports whether d is a well-formed calendar day.
func ValidDay(d string) bool {
	_, err := time.ParseInLocation(DayFormat, d, time.UTC)
	return err == nil
}
