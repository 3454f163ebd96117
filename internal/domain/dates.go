package domain

import (
	"math"
	"time"
)

// day is the scheduling granularity.
const day = 24 * time.Hour

// DayStart truncates t to midnight UTC of its calendar day.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// OffsetDate returns the exact instant offset days after start.
func OffsetDate(start time.Time, offset float64) time.Time {
	return start.Add(time.Duration(offset * float64(day)))
}

// DisplayStartDate returns the whole day on which an offset starts.
func DisplayStartDate(start time.Time, offset float64) time.Time {
	return DayStart(start).AddDate(0, 0, int(math.Floor(offset+dayEpsilon)))
}

// DisplayFinishDate rounds a fractional finish offset up to the next whole day.
func DisplayFinishDate(start time.Time, offset float64) time.Time {
	return DayStart(start).AddDate(0, 0, int(math.Ceil(offset-dayEpsilon)))
}

// DaysBetween returns the whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DayStart(b).Sub(DayStart(a)) / day)
}
