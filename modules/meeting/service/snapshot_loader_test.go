package service

import (
	"context"
	"reflect"
	"testing"
	"time"

	availabilityEntity "fairmeet/modules/availability/entity"
	calendarEntity "fairmeet/modules/calendar/entity"
	"fairmeet/modules/meeting/engine"

	"github.com/google/uuid"
)

func TestDemoFallbackProvider_BusyBlocks(t *testing.T) {
	p := NewDemoFallbackProvider(3)
	from := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) // Monday
	to := from.AddDate(0, 0, 14)

	blocks := p.BusyBlocks("user-1", from, to)
	if len(blocks) != 6 {
		t.Fatalf("expected 3 blocks per week over two weeks, got %d", len(blocks))
	}
	for _, b := range blocks {
		if wd := b.Start.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("block on weekend: %s", b.Start)
		}
		if h := b.Start.Hour(); h < 9 || h > 16 || b.Start.Minute() != 0 {
			t.Errorf("block outside working hours: %s", b.Start)
		}
		if d := b.End.Sub(b.Start); d != 30*time.Minute && d != time.Hour {
			t.Errorf("unexpected duration %s", d)
		}
	}

	if again := p.BusyBlocks("user-1", from, to); !reflect.DeepEqual(blocks, again) {
		t.Fatal("blocks are not deterministic")
	}
	if other := p.BusyBlocks("user-2", from, to); reflect.DeepEqual(blocks, other) {
		t.Fatal("different users produced identical blocks")
	}

	// a narrow window keeps only blocks that overlap it
	narrow := p.BusyBlocks("user-1", from.Add(9*time.Hour), from.Add(10*time.Hour))
	for _, b := range narrow {
		if !b.Start.Before(from.Add(10*time.Hour)) || !b.End.After(from.Add(9*time.Hour)) {
			t.Errorf("block %s-%s outside window", b.Start, b.End)
		}
	}

	if got := NewDemoFallbackProvider(0).BusyBlocks("user-1", from, to); got != nil {
		t.Fatalf("expected no blocks when disabled, got %v", got)
	}
}

func TestMergeBusyIntoOverrides(t *testing.T) {
	start := time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)
	base := []engine.Override{{StartAt: start, EndAt: start.Add(time.Hour), Kind: engine.OverrideAvailable}}

	if got := MergeBusyIntoOverrides(base, nil); !reflect.DeepEqual(got, base) {
		t.Fatalf("expected overrides unchanged, got %v", got)
	}

	berlin := time.FixedZone("CEST", 2*3600)
	got := MergeBusyIntoOverrides(base, []calendarEntity.TimeRange{
		{Start: start.In(berlin), End: start.Add(30 * time.Minute).In(berlin)},
		{Start: start, End: start},
	})
	if len(got) != 2 {
		t.Fatalf("expected empty span to be dropped, got %v", got)
	}
	if got[1].Kind != engine.OverrideUnavailable || got[1].StartAt.Location() != time.UTC || !got[1].StartAt.Equal(start) {
		t.Fatalf("unexpected busy override %+v", got[1])
	}
}

func TestSnapshotLoader_Load(t *testing.T) {
	repo := newFakeRepo()
	withProfile, connected, bare := uuid.New(), uuid.New(), uuid.New()
	repo.profiles = []availabilityEntity.AvailabilityProfile{{UserID: withProfile, TimeZone: "Asia/Tokyo"}}
	repo.windows = []availabilityEntity.WeeklyWindow{{UserID: withProfile, DayOfWeek: 2, StartMinute: 600, EndMinute: 720}}
	repo.connected = []uuid.UUID{connected}

	from := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	repo.busy = []calendarEntity.BusyBlock{{UserID: connected, StartUTC: from.Add(10 * time.Hour), EndUTC: from.Add(11 * time.Hour)}}

	loader := NewSnapshotLoader(repo, NewDemoFallbackProvider(2))
	got, err := loader.Load(context.Background(), []uuid.UUID{bare, connected, withProfile}, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0].UserID != bare.String() || got[2].UserID != withProfile.String() {
		t.Fatalf("snapshots out of order: %+v", got)
	}
	if got[0].TimeZone != "UTC" || got[2].TimeZone != "Asia/Tokyo" {
		t.Fatalf("unexpected zones %q %q", got[0].TimeZone, got[2].TimeZone)
	}
	if len(got[2].Windows) != 1 {
		t.Fatalf("expected template window, got %v", got[2].Windows)
	}
	// connected users keep their own busy time; the others get two demo blocks
	if len(got[1].Overrides) != 1 {
		t.Fatalf("connected user should not get demo blocks, got %v", got[1].Overrides)
	}
	if len(got[0].Overrides) != 2 || len(got[2].Overrides) != 2 {
		t.Fatalf("expected demo blocks for unconnected users, got %d and %d", len(got[0].Overrides), len(got[2].Overrides))
	}

	plain, err := NewSnapshotLoader(repo, nil).Load(context.Background(), []uuid.UUID{bare}, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plain[0].Overrides) != 0 {
		t.Fatalf("expected no busy time without demo fallback, got %v", plain[0].Overrides)
	}
}
