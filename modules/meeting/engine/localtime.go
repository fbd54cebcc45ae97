package engine

import (
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// ErrNonexistentLocalTime is returned when a wall-clock time falls in a DST gap.
var ErrNonexistentLocalTime = errors.New("engine: local time does not exist in zone")

// Date is a calendar date without a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("engine: invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

func (d Date) Before(o Date) bool {
	return d.compare(o) < 0
}

func (d Date) After(o Date) bool {
	return d.compare(o) > 0
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func (d Date) ISOWeekday() int {
	wd := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// DaysUntil returns the number of days from d to o.
func (d Date) DaysUntil(o Date) int {
	a := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
	b := time.Date(o.Year, o.Month, o.Day, 12, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return d.Year - o.Year
	case d.Month != o.Month:
		return int(d.Month) - int(o.Month)
	default:
		return d.Day - o.Day
	}
}

// LocalMinutesOfDay returns the wall-clock minutes since local midnight of t,
// rounded to the nearest minute.
func LocalMinutesOfDay(t time.Time) int {
	m := t.Hour()*60 + t.Minute()
	if t.Second() >= 30 {
		m++
	}
	return m
}

// LocalDateFromUTC returns the calendar date of the instant t in loc.
func LocalDateFromUTC(t time.Time, loc *time.Location) Date {
	return DateOf(t.In(loc))
}

// LocalMidnight returns the first instant of date in loc.
func LocalMidnight(date Date, loc *time.Location) time.Time {
	return time.Date(date.Year, date.Month, date.Day, 0, 0, 0, 0, loc)
}

// UTCFromLocalWallClock converts the wall-clock time date+minute in loc to a UTC instant.
// minute may equal MinutesPerDay, meaning midnight of the following date.
// Wall-clock times skipped by a DST transition return ErrNonexistentLocalTime.
func UTCFromLocalWallClock(date Date, minute int, loc *time.Location) (time.Time, error) {
	t := time.Date(date.Year, date.Month, date.Day, 0, minute, 0, 0, loc)

	wantDate := date.AddDays(minute / MinutesPerDay)
	wantMinute := minute % MinutesPerDay
	local := t.In(loc)
	if DateOf(local) != wantDate || local.Hour()*60+local.Minute() != wantMinute {
		return time.Time{}, fmt.Errorf("%w: %s +%dm in %s", ErrNonexistentLocalTime, date, minute, loc)
	}
	return t.UTC(), nil
}

// OverrideToLocalIntervalForDate clips the override's UTC span to the local day of date in loc
// and returns it as minute-of-day interval. ok is false when nothing of the override lands on date.
// A span crossing a DST transition maps to the hull of the wall-clock minutes it occupies, so an
// hour repeated at fall-back is never dropped.
func OverrideToLocalIntervalForDate(o Override, date Date, loc *time.Location) (Interval, bool) {
	dayStart := LocalMidnight(date, loc)
	dayEnd := LocalMidnight(date.AddDays(1), loc)

	start := o.StartAt
	if start.Before(dayStart) {
		start = dayStart
	}
	end := o.EndAt
	if end.After(dayEnd) {
		end = dayEnd
	}
	if !end.After(start) {
		return Interval{}, false
	}

	startMin := LocalMinutesOfDay(start.In(loc))
	endMin := MinutesPerDay
	if end.Before(dayEnd) {
		endMin = LocalMinutesOfDay(end.In(loc))
	}
	if lo, hi, crossed := acrossTransition(start, end, startMin, loc); crossed {
		if lo < startMin {
			startMin = lo
		}
		if hi > endMin {
			endMin = hi
		}
	}
	if endMin <= startMin {
		return Interval{}, false
	}
	return Interval{Start: startMin, End: endMin}, true
}

// acrossTransition reports the wall-clock minutes around the first zone transition in
// [start, end): lo is the wall clock just after the jump and hi the wall clock reached
// just before it.
func acrossTransition(start, end time.Time, startMin int, loc *time.Location) (lo, hi int, crossed bool) {
	localStart := start.In(loc)
	_, startOffset := localStart.Zone()
	_, endOffset := end.In(loc).Zone()
	if startOffset == endOffset {
		return 0, 0, false
	}
	_, tr := localStart.ZoneBounds()
	if tr.IsZero() || !tr.Before(end) {
		return 0, 0, false
	}

	hi = startMin + int(tr.Sub(start).Round(time.Minute)/time.Minute)
	if hi > MinutesPerDay {
		hi = MinutesPerDay
	}
	return LocalMinutesOfDay(tr.In(loc)), hi, true
}
