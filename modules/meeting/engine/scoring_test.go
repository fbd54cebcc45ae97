package engine

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

func allWeek(start, end int) []WeeklyWindow {
	out := make([]WeeklyWindow, 0, 7)
	for day := 1; day <= 7; day++ {
		out = append(out, WeeklyWindow{DayOfWeek: day, StartMinute: start, EndMinute: end})
	}
	return out
}

func tuesdayRequest(t *testing.T, attendees ...AttendeeAvailability) Request {
	t.Helper()
	tue := mustDate(t, "2026-10-20")
	return Request{
		TimeZone:        "America/New_York",
		RangeStart:      tue,
		RangeEnd:        tue,
		DurationMinutes: 30,
		StepMinutes:     30,
		DayStartMinute:  540,
		DayEndMinute:    660,
		Attendees:       attendees,
	}
}

func TestSuggest_Deterministic(t *testing.T) {
	window := []WeeklyWindow{{DayOfWeek: 2, StartMinute: 540, EndMinute: 1020}}
	req := tuesdayRequest(t,
		AttendeeAvailability{UserID: "u1", TimeZone: "America/New_York", Windows: window},
		AttendeeAvailability{UserID: "u2", TimeZone: "America/New_York", Windows: window},
	)

	first, err := Suggest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Suggest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("outputs differ:\n%s\n%s", a, b)
	}
	if len(first) != 4 {
		t.Fatalf("expected 4 candidates, got %d", len(first))
	}
	if first[0].Rank != 1 {
		t.Fatalf("expected rank 1, got %d", first[0].Rank)
	}
	if want := time.Date(2026, 10, 20, 13, 0, 0, 0, time.UTC); !first[0].StartAt.Equal(want) {
		t.Fatalf("expected first candidate at %s, got %s", want, first[0].StartAt)
	}
	for i, c := range first {
		if c.Rank != i+1 {
			t.Fatalf("expected rank %d, got %d", i+1, c.Rank)
		}
		if math.Abs(c.Scores.Total-1) > 1e-9 {
			t.Fatalf("expected perfect score, got %v", c.Scores.Total)
		}
	}
}

func TestSuggest_TimeZoneCorrectness(t *testing.T) {
	window := []WeeklyWindow{{DayOfWeek: 2, StartMinute: 540, EndMinute: 600}}
	req := tuesdayRequest(t,
		AttendeeAvailability{UserID: "la", TimeZone: "America/Los_Angeles", Windows: window},
		AttendeeAvailability{UserID: "ny", TimeZone: "America/New_York", Windows: window},
	)
	req.DurationMinutes = 60
	req.StepMinutes = 60
	req.DayEndMinute = 600

	got, err := Suggest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0].MissingUserIDs, []string{"la"}) {
		t.Fatalf("expected la missing, got %v", got[0].MissingUserIDs)
	}
	if !reflect.DeepEqual(got[0].AvailableUserIDs, []string{"ny"}) {
		t.Fatalf("expected ny available, got %v", got[0].AvailableUserIDs)
	}
	if got[0].AttendanceRatio != 0.5 {
		t.Fatalf("expected ratio 0.5, got %v", got[0].AttendanceRatio)
	}
}

func TestSuggest_UnavailableOverrideRemovesSlot(t *testing.T) {
	blocked := time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC)
	req := tuesdayRequest(t, AttendeeAvailability{
		UserID:    "u1",
		TimeZone:  "America/New_York",
		Windows:   []WeeklyWindow{{DayOfWeek: 2, StartMinute: 540, EndMinute: 720}},
		Overrides: []Override{{StartAt: blocked, EndAt: blocked.Add(time.Hour), Kind: OverrideUnavailable}},
	})
	req.DurationMinutes = 60
	req.DayEndMinute = 720

	got, err := Suggest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	for _, c := range got {
		if c.StartAt.Equal(blocked) {
			t.Fatalf("candidate starts inside blocked time: %s", c.StartAt)
		}
	}
}

func TestSuggest_FairnessFloor(t *testing.T) {
	req := tuesdayRequest(t,
		AttendeeAvailability{
			UserID:   "early",
			TimeZone: "America/New_York",
			Windows:  []WeeklyWindow{{DayOfWeek: 2, StartMinute: 390, EndMinute: 450}},
		},
		AttendeeAvailability{UserID: "london", TimeZone: "Europe/London", Windows: allWeek(0, MinutesPerDay)},
	)
	req.DurationMinutes = 60
	req.DayStartMinute = 390
	req.DayEndMinute = 450

	got, err := Suggest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.Scores.Fairness != 0 {
		t.Fatalf("expected fairness 0, got %v", c.Scores.Fairness)
	}
	if math.Abs(c.Scores.Inconvenience-0.5) > 1e-9 {
		t.Fatalf("expected inconvenience 0.5, got %v", c.Scores.Inconvenience)
	}
	if math.Abs(c.Scores.Total-0.7) > 1e-9 {
		t.Fatalf("expected total 0.7, got %v", c.Scores.Total)
	}
	last := c.Explanation[len(c.Explanation)-1]
	if !strings.Contains(last, "early") || !strings.Contains(last, "06:30-07:30") {
		t.Fatalf("expected worst attendee in explanation, got %q", last)
	}
}

func TestSuggest_NeverEmitsZeroAttendance(t *testing.T) {
	req := tuesdayRequest(t,
		AttendeeAvailability{UserID: "u1", TimeZone: "America/New_York"},
		AttendeeAvailability{UserID: "u2", TimeZone: "Nowhere/Invalid", Windows: allWeek(0, MinutesPerDay)},
	)
	got, err := Suggest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestSuggest_RanksAttendanceFirst(t *testing.T) {
	req := tuesdayRequest(t,
		AttendeeAvailability{UserID: "a", TimeZone: "America/New_York", Windows: []WeeklyWindow{{DayOfWeek: 2, StartMinute: 540, EndMinute: 600}}},
		AttendeeAvailability{UserID: "b", TimeZone: "America/New_York", Windows: []WeeklyWindow{{DayOfWeek: 2, StartMinute: 570, EndMinute: 630}}},
	)
	req.DayEndMinute = 630

	got, err := Suggest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if want := time.Date(2026, 10, 20, 13, 30, 0, 0, time.UTC); !got[0].StartAt.Equal(want) {
		t.Fatalf("expected shared slot first at %s, got %s", want, got[0].StartAt)
	}
	if !got[1].StartAt.Before(got[2].StartAt) {
		t.Fatalf("expected ties ordered by start time")
	}
	for _, c := range got {
		if c.AttendanceRatio <= 0 {
			t.Fatalf("candidate with zero attendance: %+v", c)
		}
	}
}

func TestSuggest_MidnightStraddleIsUnavailable(t *testing.T) {
	req := tuesdayRequest(t,
		AttendeeAvailability{UserID: "ny", TimeZone: "America/New_York", Windows: allWeek(0, MinutesPerDay)},
		AttendeeAvailability{UserID: "tokyo", TimeZone: "Asia/Tokyo", Windows: allWeek(0, MinutesPerDay)},
	)
	req.DurationMinutes = 60
	req.StepMinutes = 60
	req.DayStartMinute = 630
	req.DayEndMinute = 690

	got, err := Suggest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0].MissingUserIDs, []string{"tokyo"}) {
		t.Fatalf("expected tokyo missing, got %v", got[0].MissingUserIDs)
	}
}

func TestSuggest_WindowEndingAtLocalMidnightIsInfeasible(t *testing.T) {
	req := tuesdayRequest(t, AttendeeAvailability{UserID: "ny", TimeZone: "America/New_York", Windows: allWeek(0, MinutesPerDay)})
	req.DurationMinutes = 60
	req.StepMinutes = 60
	req.DayStartMinute = 1320
	req.DayEndMinute = MinutesPerDay

	got, err := Suggest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 23:00-24:00 ends on the next local date
	ny := mustLoad(t, "America/New_York")
	if len(got) != 1 || got[0].StartAt.In(ny).Hour() != 22 {
		t.Fatalf("expected only the 22:00 window, got %+v", got)
	}
}

func TestSuggest_TruncatesToMaxCandidates(t *testing.T) {
	req := tuesdayRequest(t, AttendeeAvailability{UserID: "u1", TimeZone: "UTC", Windows: allWeek(0, MinutesPerDay)})
	req.DayStartMinute = 0
	req.DayEndMinute = MinutesPerDay
	req.StepMinutes = 15

	got, err := Suggest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != DefaultMaxCandidates {
		t.Fatalf("expected default cap %d, got %d", DefaultMaxCandidates, len(got))
	}

	req.MaxCandidates = 5
	got, err = Suggest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 || got[4].Rank != 5 {
		t.Fatalf("expected 5 ranked candidates, got %d", len(got))
	}
}

func TestSuggest_DuplicateAttendeesCountOnce(t *testing.T) {
	a := AttendeeAvailability{UserID: "u1", TimeZone: "America/New_York", Windows: allWeek(540, 1020)}
	got, err := Suggest(tuesdayRequest(t, a, a))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 || got[0].AttendanceRatio != 1 || len(got[0].AvailableUserIDs) != 1 {
		t.Fatalf("expected duplicate attendee to count once, got %+v", got)
	}
}

func TestSuggest_ValidationErrors(t *testing.T) {
	base := func() Request {
		return tuesdayRequest(t, AttendeeAvailability{UserID: "u1", TimeZone: "UTC"})
	}

	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"no attendees", func(r *Request) { r.Attendees = nil }, ErrNoAttendees},
		{"equal day bounds", func(r *Request) { r.DayStartMinute, r.DayEndMinute = 600, 600 }, ErrInvalidDayBounds},
		{"day end past midnight", func(r *Request) { r.DayEndMinute = MinutesPerDay + 1 }, ErrInvalidDayBounds},
		{"bad zone", func(r *Request) { r.TimeZone = "Nowhere/Invalid" }, ErrInvalidTimeZone},
		{"zero duration", func(r *Request) { r.DurationMinutes = 0 }, ErrInvalidDuration},
		{"zero step", func(r *Request) { r.StepMinutes = 0 }, ErrInvalidStep},
		{"inverted range", func(r *Request) { r.RangeEnd = r.RangeStart.AddDays(-1) }, ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(&req)
			if _, err := Suggest(req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPenalty_Bands(t *testing.T) {
	tests := []struct {
		start, end int
		want       float64
	}{
		{540, 1020, 0},
		{600, 660, 0},
		{480, 1080, 0.25},
		{510, 570, 0.25},
		{479, 600, 0.6},
		{1000, 1081, 0.6},
		{420, 1140, 0.6},
		{419, 600, 1},
		{1100, 1141, 1},
		{390, 450, 1},
	}
	for _, tt := range tests {
		if got := Penalty(tt.start, tt.end); got != tt.want {
			t.Fatalf("Penalty(%d, %d): expected %v, got %v", tt.start, tt.end, tt.want, got)
		}
	}
}
