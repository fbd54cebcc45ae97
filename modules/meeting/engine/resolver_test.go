package engine

import (
	"reflect"
	"testing"
	"time"
)

func TestResolver_SubtractsUnavailableOverride(t *testing.T) {
	r := NewResolver([]AttendeeAvailability{{
		UserID:   "u1",
		TimeZone: "America/New_York",
		Windows:  []WeeklyWindow{{DayOfWeek: 2, StartMinute: 540, EndMinute: 720}},
		Overrides: []Override{{
			StartAt: time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC),
			EndAt:   time.Date(2026, 10, 20, 16, 0, 0, 0, time.UTC),
			Kind:    OverrideUnavailable,
		}},
	}})

	got := r.Resolve("u1", mustDate(t, "2026-10-20"))
	want := []Interval{{Start: 540, End: 660}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// next Tuesday has no override
	got = r.Resolve("u1", mustDate(t, "2026-10-27"))
	want = []Interval{{Start: 540, End: 720}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolver_RemovalWinsOverAddition(t *testing.T) {
	r := NewResolver([]AttendeeAvailability{{
		UserID:   "u1",
		TimeZone: "America/New_York",
		Windows:  []WeeklyWindow{{DayOfWeek: 2, StartMinute: 540, EndMinute: 720}},
		Overrides: []Override{
			{
				StartAt: time.Date(2026, 10, 20, 22, 30, 0, 0, time.UTC),
				EndAt:   time.Date(2026, 10, 20, 23, 30, 0, 0, time.UTC),
				Kind:    OverrideUnavailable,
			},
			{
				StartAt: time.Date(2026, 10, 20, 22, 0, 0, 0, time.UTC),
				EndAt:   time.Date(2026, 10, 20, 23, 0, 0, 0, time.UTC),
				Kind:    OverrideAvailable,
			},
		},
	}})

	got := r.Resolve("u1", mustDate(t, "2026-10-20"))
	want := []Interval{{Start: 540, End: 720}, {Start: 1080, End: 1110}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolver_MultiDayOverrideIndexedOnEveryDate(t *testing.T) {
	var windows []WeeklyWindow
	for day := 1; day <= 3; day++ {
		windows = append(windows, WeeklyWindow{DayOfWeek: day, StartMinute: 540, EndMinute: 1020})
	}
	r := NewResolver([]AttendeeAvailability{{
		UserID:   "u1",
		TimeZone: "America/New_York",
		Windows:  windows,
		Overrides: []Override{{
			StartAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
			EndAt:   time.Date(2026, 10, 21, 12, 0, 0, 0, time.UTC),
			Kind:    OverrideUnavailable,
		}},
	}})

	if got := r.Resolve("u1", mustDate(t, "2026-10-19")); len(got) != 0 {
		t.Fatalf("expected Monday removed, got %v", got)
	}
	if got := r.Resolve("u1", mustDate(t, "2026-10-20")); len(got) != 0 {
		t.Fatalf("expected Tuesday removed, got %v", got)
	}
	got := r.Resolve("u1", mustDate(t, "2026-10-21"))
	want := []Interval{{Start: 540, End: 1020}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected Wednesday untouched %v, got %v", want, got)
	}
}

func TestResolver_UnavailableAttendees(t *testing.T) {
	r := NewResolver([]AttendeeAvailability{
		{UserID: "bad-zone", TimeZone: "Mars/Olympus", Windows: []WeeklyWindow{{DayOfWeek: 2, StartMinute: 0, EndMinute: 1440}}},
		{UserID: "empty", TimeZone: "UTC"},
	})
	date := mustDate(t, "2026-10-20")

	for _, id := range []string{"bad-zone", "empty", "unknown"} {
		if got := r.Resolve(id, date); len(got) != 0 {
			t.Fatalf("%s: expected no availability, got %v", id, got)
		}
	}
	if r.Location("bad-zone") != nil {
		t.Fatalf("expected nil location for unknown zone")
	}
}

func TestResolver_CachesPerUserAndDate(t *testing.T) {
	r := NewResolver([]AttendeeAvailability{{
		UserID:   "u1",
		TimeZone: "UTC",
		Windows:  []WeeklyWindow{{DayOfWeek: 2, StartMinute: 540, EndMinute: 600}},
	}})
	date := mustDate(t, "2026-10-20")

	first := r.Resolve("u1", date)
	second := r.Resolve("u1", date)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached result differs: %v vs %v", first, second)
	}
	r.Resolve("u1", date.AddDays(1))
	if len(r.cache) != 2 {
		t.Fatalf("expected 2 cache entries, got %d", len(r.cache))
	}
	if _, ok := r.cache[resolveKey{UserID: "u1", Date: date}]; !ok {
		t.Fatalf("expected cache entry for %s", date)
	}
}

func TestResolver_IgnoresInvalidWindows(t *testing.T) {
	r := NewResolver([]AttendeeAvailability{{
		UserID:   "u1",
		TimeZone: "UTC",
		Windows: []WeeklyWindow{
			{DayOfWeek: 0, StartMinute: 540, EndMinute: 600},
			{DayOfWeek: 8, StartMinute: 540, EndMinute: 600},
			{DayOfWeek: 2, StartMinute: 600, EndMinute: 540},
			{DayOfWeek: 2, StartMinute: 700, EndMinute: 760},
		},
	}})
	got := r.Resolve("u1", mustDate(t, "2026-10-20"))
	want := []Interval{{Start: 700, End: 760}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
