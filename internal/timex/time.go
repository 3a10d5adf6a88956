package timex

import "time"

// NaiveUTC drops any zone information from t and reinterprets its wall
// clock as UTC.
func NaiveUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Stamp normalizes t to UTC at microsecond precision, the finest both
// Postgres TIMESTAMP and the SQLite text format round-trip.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
