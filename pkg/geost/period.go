package geost

import (
	"fmt"
	"time"
)

// Time periods are one week long, counted from the Unix epoch. Bounding the
// Z3 time dimension to one period keeps curve precision independent of how
// far apart a query's endpoints are.
const (
	PeriodSeconds int64 = 7 * 24 * 3600
	periodMillis  int64 = PeriodSeconds * 1000
)

// Period is one chunk of a multi-period time interval: the epoch-week number
// and the inclusive offsets, in seconds, the interval covers within it.
type Period struct {
	ID    int16
	Start int64
	End   int64
}

// PeriodOf returns the epoch-week a time falls in. Floor division keeps
// pre-1970 instants in negative periods.
func PeriodOf(t time.Time) int16 {
	return int16(floorDiv(t.UnixMilli(), periodMillis))
}

// secondsWithin returns the offset of t within its period, in seconds.
func secondsWithin(t time.Time) int64 {
	return floorMod(t.UnixMilli(), periodMillis) / 1000
}

// SplitInterval splits [start, end] into per-week periods: a head period from
// start to the week boundary, zero or more full middle weeks, and a tail from
// the boundary to end. An interval inside a single week yields one period.
// start after end is a caller bug and returns ErrInvalidInterval.
func SplitInterval(start, end time.Time) ([]Period, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s after end %s",
			ErrInvalidInterval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	first := floorDiv(start.UnixMilli(), periodMillis)
	last := floorDiv(end.UnixMilli(), periodMillis)
	if first == last {
		return []Period{{ID: int16(first), Start: secondsWithin(start), End: secondsWithin(end)}}, nil
	}

	// End: PeriodSeconds is the inclusive encoding of the half-open week
	// boundary; offsets within a period are always < PeriodSeconds, so no
	// row can sit on the boundary itself
	periods := make([]Period, 0, last-first+1)
	periods = append(periods, Period{ID: int16(first), Start: secondsWithin(start), End: PeriodSeconds})
	for p := first + 1; p < last; p++ {
		periods = append(periods, Period{ID: int16(p), Start: 0, End: PeriodSeconds})
	}
	periods = append(periods, Period{ID: int16(last), Start: 0, End: secondsWithin(end)})
	return periods, nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
