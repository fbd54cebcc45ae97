package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"fairmeet/core/logger"
	"fairmeet/modules/calendar/entity"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

const maxOccurrencesPerEvent = 5000

var errEmptyICS = errors.New("empty ICS body")

// icsEvent is a VEVENT reduced to what busy-time import needs.
type icsEvent struct {
	uid        string
	start      time.Time
	end        time.Time
	allDay     bool
	rawRRule   string
	exDates    []time.Time
	recurrence *time.Time
}

// ParseICSBusy extracts the busy spans of an ICS payload that overlap [from, to).
// Transparent and cancelled events are ignored. Recurring events are expanded with
// their RRULE and EXDATEs; an instance carrying a RECURRENCE-ID replaces the
// generated occurrence it points at. Floating and all-day times are read in loc.
// Spans are clipped to the window and returned sorted by start.
func ParseICSBusy(content string, from, to time.Time, loc *time.Location) ([]entity.TimeRange, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errEmptyICS
	}
	if loc == nil {
		loc = time.UTC
	}

	cal, err := ical.ParseCalendar(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	var events []icsEvent
	replaced := make(map[string][]time.Time)
	for _, ve := range cal.Events() {
		if !isBusy(ve) {
			continue
		}
		ev, err := parseEvent(ve, loc)
		if err != nil {
			logger.Warn("ICS:ParseEvent:Skip", "error", err)
			continue
		}
		if ev.recurrence != nil {
			replaced[ev.uid] = append(replaced[ev.uid], *ev.recurrence)
		}
		events = append(events, ev)
	}

	var out []entity.TimeRange
	for _, ev := range events {
		if ev.rawRRule == "" || ev.recurrence != nil {
			out = appendClipped(out, ev.start, ev.end, from, to)
			continue
		}
		ev.exDates = append(ev.exDates, replaced[ev.uid]...)
		out = append(out, expandRecurring(ev, from, to, loc)...)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].End.Before(out[j].End)
	})
	return out, nil
}

func isBusy(ve *ical.VEvent) bool {
	if p := ve.GetProperty(ical.ComponentProperty("TRANSP")); p != nil && strings.EqualFold(strings.TrimSpace(p.Value), "TRANSPARENT") {
		return false
	}
	if p := ve.GetProperty(ical.ComponentProperty("STATUS")); p != nil && strings.EqualFold(strings.TrimSpace(p.Value), "CANCELLED") {
		return false
	}
	return true
}

func parseEvent(ve *ical.VEvent, loc *time.Location) (icsEvent, error) {
	var ev icsEvent
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.uid = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return ev, errors.New("missing DTSTART")
	}
	start, allDay, err := propTime(startProp.Value, startProp.ICalParameters, loc)
	if err != nil {
		return ev, fmt.Errorf("DTSTART: %w", err)
	}
	ev.start = start
	ev.allDay = allDay

	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		end, _, err := propTime(endProp.Value, endProp.ICalParameters, loc)
		if err != nil {
			return ev, fmt.Errorf("DTEND: %w", err)
		}
		ev.end = end
	} else if allDay {
		ev.end = start.AddDate(0, 0, 1)
	} else {
		ev.end = start
	}
	if !ev.end.After(ev.start) {
		return ev, fmt.Errorf("event %q has no duration", ev.uid)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.rawRRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, _, err := propTime(part, p.ICalParameters, loc); err == nil {
				ev.exDates = append(ev.exDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, _, err := propTime(p.Value, p.ICalParameters, loc); err == nil {
			ev.recurrence = &t
		}
	}
	return ev, nil
}

// propTime parses a DATE or DATE-TIME value. UTC values end in Z, TZID selects a zone,
// anything else is floating and read in loc. Dates resolve to local midnight.
func propTime(value string, params map[string][]string, loc *time.Location) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
		if tz, err := time.LoadLocation(strings.Trim(tzs[0], `"`)); err == nil {
			loc = tz
		}
	}
	isDate := !strings.Contains(value, "T")
	if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		isDate = true
	}

	switch {
	case isDate:
		t, err := time.ParseInLocation("20060102", value, loc)
		return t, true, err
	case strings.HasSuffix(value, "Z"):
		t, err := time.Parse("20060102T150405Z", value)
		return t, false, err
	default:
		t, err := time.ParseInLocation("20060102T150405", value, loc)
		return t, false, err
	}
}

func expandRecurring(ev icsEvent, from, to time.Time, loc *time.Location) []entity.TimeRange {
	r, err := rrule.StrToRRule(ev.rawRRule)
	if err != nil {
		logger.Warn("ICS:ExpandRecurring:BadRRule", "uid", ev.uid, "rrule", ev.rawRRule, "error", err)
		return nil
	}
	r.DTStart(ev.start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.exDates {
		set.ExDate(ex.In(ev.start.Location()))
	}

	dur := ev.end.Sub(ev.start)
	days := 0
	if ev.allDay {
		days = int(dur.Round(24*time.Hour) / (24 * time.Hour))
		if days < 1 {
			days = 1
		}
	}

	occurrences := set.Between(from.Add(-dur).In(ev.start.Location()), to.In(ev.start.Location()), true)
	if len(occurrences) > maxOccurrencesPerEvent {
		logger.Warn("ICS:ExpandRecurring:Truncated", "uid", ev.uid, "cap", maxOccurrencesPerEvent)
		occurrences = occurrences[:maxOccurrencesPerEvent]
	}

	var out []entity.TimeRange
	for _, occ := range occurrences {
		var end time.Time
		if ev.allDay {
			occ = time.Date(occ.Year(), occ.Month(), occ.Day(), 0, 0, 0, 0, loc)
			end = occ.AddDate(0, 0, days)
		} else {
			end = occ.Add(dur)
		}
		out = appendClipped(out, occ, end, from, to)
	}
	return out
}

func appendClipped(out []entity.TimeRange, start, end, from, to time.Time) []entity.TimeRange {
	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	if !end.After(start) {
		return out
	}
	return append(out, entity.TimeRange{Start: start.UTC(), End: end.UTC()})
}
