package engine

import "time"

type resolveKey struct {
	UserID string
	Date   Date
}

type attendeeIndex struct {
	loc       *time.Location
	byWeekday [7][]Interval
	byDate    map[Date][]Override
}

// Resolver computes effective availability per attendee and local date.
// Results are cached for the lifetime of the Resolver.
type Resolver struct {
	attendees map[string]*attendeeIndex
	cache     map[resolveKey][]Interval
}

// NewResolver indexes the attendees' templates and overrides. An attendee whose
// time zone cannot be loaded is kept with a nil location and never available.
// When the same user ID appears twice the first entry wins.
func NewResolver(attendees []AttendeeAvailability) *Resolver {
	r := &Resolver{
		attendees: make(map[string]*attendeeIndex, len(attendees)),
		cache:     make(map[resolveKey][]Interval),
	}
	for _, a := range attendees {
		if _, seen := r.attendees[a.UserID]; seen {
			continue
		}
		r.attendees[a.UserID] = indexAttendee(a)
	}
	return r
}

func indexAttendee(a AttendeeAvailability) *attendeeIndex {
	idx := &attendeeIndex{byDate: make(map[Date][]Override)}

	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil || a.TimeZone == "" {
		return idx
	}
	idx.loc = loc

	var grouped [7][]Interval
	for _, w := range a.Windows {
		if w.DayOfWeek < 1 || w.DayOfWeek > 7 {
			continue
		}
		grouped[w.DayOfWeek-1] = append(grouped[w.DayOfWeek-1], Interval{Start: w.StartMinute, End: w.EndMinute})
	}
	for i := range grouped {
		idx.byWeekday[i] = Normalize(grouped[i], compositionMinSize)
	}

	for _, o := range a.Overrides {
		if !o.EndAt.After(o.StartAt) {
			continue
		}
		first := LocalDateFromUTC(o.StartAt, loc)
		last := LocalDateFromUTC(o.EndAt, loc)
		for d := first; !d.After(last); d = d.AddDays(1) {
			idx.byDate[d] = append(idx.byDate[d], o)
		}
	}
	return idx
}

// Location returns the attendee's time zone, or nil if unknown.
func (r *Resolver) Location(userID string) *time.Location {
	if idx, ok := r.attendees[userID]; ok {
		return idx.loc
	}
	return nil
}

// Resolve returns the effective available intervals of userID on the local date.
// AVAILABLE overrides are unioned into the weekly template first; UNAVAILABLE
// overrides are subtracted last, so removals always win.
func (r *Resolver) Resolve(userID string, date Date) []Interval {
	key := resolveKey{UserID: userID, Date: date}
	if cached, ok := r.cache[key]; ok {
		return cached
	}

	var effective []Interval
	if idx, ok := r.attendees[userID]; ok && idx.loc != nil {
		effective = idx.resolve(date)
	} else {
		effective = []Interval{}
	}
	r.cache[key] = effective
	return effective
}

func (idx *attendeeIndex) resolve(date Date) []Interval {
	base := idx.byWeekday[date.ISOWeekday()-1]

	var adds, removes []Interval
	for _, o := range idx.byDate[date] {
		in, ok := OverrideToLocalIntervalForDate(o, date, idx.loc)
		if !ok {
			continue
		}
		switch o.Kind {
		case OverrideAvailable:
			adds = append(adds, in)
		case OverrideUnavailable:
			removes = append(removes, in)
		}
	}

	withAdds := Union(base, adds, compositionMinSize)
	return Normalize(Subtract(withAdds, removes, compositionMinSize), compositionMinSize)
}
