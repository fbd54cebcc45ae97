// Package engine resolves attendee availability and ranks candidate meeting slots.
//
// Everything in this package is a pure function of its arguments: no I/O, no clock,
// no shared state. A single call to Suggest owns its resolver cache, so concurrent
// calls need no locking.
package engine

import (
	"errors"
	"time"
)

var (
	ErrNoAttendees      = errors.New("engine: at least one attendee is required")
	ErrInvalidDayBounds = errors.New("engine: day start must be before day end within one day")
	ErrInvalidTimeZone  = errors.New("engine: unknown time zone")
	ErrInvalidDuration  = errors.New("engine: duration must be positive")
	ErrInvalidStep      = errors.New("engine: step must be positive")
	ErrInvalidRange     = errors.New("engine: range end is before range start")
)

// DefaultMaxCandidates caps Suggest output when the request does not set MaxCandidates.
const DefaultMaxCandidates = 25

// OverrideKind tells whether an override adds or removes availability.
type OverrideKind string

const (
	OverrideAvailable   OverrideKind = "AVAILABLE"
	OverrideUnavailable OverrideKind = "UNAVAILABLE"
)

// WeeklyWindow is recurring local availability. DayOfWeek is ISO: 1=Monday, 7=Sunday.
type WeeklyWindow struct {
	DayOfWeek   int `json:"day_of_week" yaml:"day_of_week"`
	StartMinute int `json:"start_minute" yaml:"start_minute"`
	EndMinute   int `json:"end_minute" yaml:"end_minute"`
}

// Override adds or removes availability over a UTC span.
type Override struct {
	StartAt time.Time    `json:"start_at" yaml:"start_at"`
	EndAt   time.Time    `json:"end_at" yaml:"end_at"`
	Kind    OverrideKind `json:"kind" yaml:"kind"`
}

// AttendeeAvailability is the per-attendee snapshot the engine consumes.
// Busy time from external calendars arrives as UNAVAILABLE overrides.
type AttendeeAvailability struct {
	UserID    string         `json:"user_id" yaml:"user_id"`
	TimeZone  string         `json:"time_zone" yaml:"time_zone"`
	Windows   []WeeklyWindow `json:"windows" yaml:"windows"`
	Overrides []Override     `json:"overrides" yaml:"overrides"`
}

// Request describes one suggestion generation call.
type Request struct {
	TimeZone        string                 `json:"time_zone" yaml:"time_zone"`
	RangeStart      Date                   `json:"range_start" yaml:"range_start"`
	RangeEnd        Date                   `json:"range_end" yaml:"range_end"`
	DurationMinutes int                    `json:"duration_minutes" yaml:"duration_minutes"`
	StepMinutes     int                    `json:"step_minutes" yaml:"step_minutes"`
	DayStartMinute  int                    `json:"day_start_minute" yaml:"day_start_minute"`
	DayEndMinute    int                    `json:"day_end_minute" yaml:"day_end_minute"`
	Attendees       []AttendeeAvailability `json:"attendees" yaml:"attendees"`
	MaxCandidates   int                    `json:"max_candidates,omitempty" yaml:"max_candidates"`
}

// Scores holds the sub-scores of a candidate, each in [0, 1].
type Scores struct {
	Total         float64 `json:"total"`
	Attendance    float64 `json:"attendance"`
	Inconvenience float64 `json:"inconvenience"`
	Fairness      float64 `json:"fairness"`
}

// Candidate is a scored UTC meeting window.
type Candidate struct {
	Rank             int       `json:"rank"`
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
	AttendanceRatio  float64   `json:"attendance_ratio"`
	Scores           Scores    `json:"scores"`
	AvailableUserIDs []string  `json:"available_user_ids"`
	MissingUserIDs   []string  `json:"missing_user_ids"`
	Explanation      []string  `json:"explanation"`
}
