package service

import (
	"context"
	"time"

	"fairmeet/core/logger"
	availabilityEntity "fairmeet/modules/availability/entity"
	availabilityService "fairmeet/modules/availability/service"
	calendarEntity "fairmeet/modules/calendar/entity"
	"fairmeet/modules/meeting/engine"
	"fairmeet/modules/meeting/repository"

	"github.com/google/uuid"
)

// SnapshotLoader assembles the engine's per-attendee availability from storage.
type SnapshotLoader struct {
	repo repository.SnapshotRepository
	demo *DemoFallbackProvider
}

// NewSnapshotLoader builds a loader; demo may be nil to disable fallback busy time.
func NewSnapshotLoader(repo repository.SnapshotRepository, demo *DemoFallbackProvider) *SnapshotLoader {
	return &SnapshotLoader{repo: repo, demo: demo}
}

// Load returns one snapshot per user, in userIDs order, with the overrides and busy time
// that overlap [from, to). Users without a profile fall back to UTC.
func (l *SnapshotLoader) Load(ctx context.Context, userIDs []uuid.UUID, from, to time.Time) ([]engine.AttendeeAvailability, error) {
	profiles, err := l.repo.ListProfiles(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	windows, err := l.repo.ListWindows(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	overrides, err := l.repo.ListOverrides(ctx, userIDs, from, to)
	if err != nil {
		return nil, err
	}
	busy, err := l.repo.ListBusyBlocks(ctx, userIDs, from, to)
	if err != nil {
		return nil, err
	}

	zoneByUser := make(map[uuid.UUID]string, len(profiles))
	for _, p := range profiles {
		zoneByUser[p.UserID] = p.TimeZone
	}
	windowsByUser := make(map[uuid.UUID][]availabilityEntity.WeeklyWindow)
	for _, w := range windows {
		windowsByUser[w.UserID] = append(windowsByUser[w.UserID], w)
	}
	overridesByUser := make(map[uuid.UUID][]availabilityEntity.AvailabilityOverride)
	for _, o := range overrides {
		overridesByUser[o.UserID] = append(overridesByUser[o.UserID], o)
	}
	busyByUser := make(map[uuid.UUID][]calendarEntity.TimeRange)
	for _, b := range busy {
		busyByUser[b.UserID] = append(busyByUser[b.UserID], calendarEntity.TimeRange{Start: b.StartUTC, End: b.EndUTC})
	}

	if l.demo != nil {
		connected, err := l.repo.ListConnectedUserIDs(ctx, userIDs)
		if err != nil {
			return nil, err
		}
		isConnected := make(map[uuid.UUID]bool, len(connected))
		for _, id := range connected {
			isConnected[id] = true
		}
		for _, id := range userIDs {
			if !isConnected[id] {
				busyByUser[id] = append(busyByUser[id], l.demo.BusyBlocks(id.String(), from, to)...)
			}
		}
	}

	out := make([]engine.AttendeeAvailability, 0, len(userIDs))
	for _, id := range userIDs {
		tz, ok := zoneByUser[id]
		if !ok || tz == "" {
			tz = availabilityService.DefaultTimeZone
		}
		a := availabilityService.ToAttendeeAvailability(id, tz, windowsByUser[id], overridesByUser[id])
		a.Overrides = MergeBusyIntoOverrides(a.Overrides, busyByUser[id])
		out = append(out, a)
	}

	logger.Debug("SnapshotLoader:Load", "attendees", len(out), "busy_blocks", len(busy))
	return out, nil
}

// MergeBusyIntoOverrides appends each busy span as an UNAVAILABLE override.
func MergeBusyIntoOverrides(overrides []engine.Override, busy []calendarEntity.TimeRange) []engine.Override {
	if len(busy) == 0 {
		return overrides
	}
	out := make([]engine.Override, 0, len(overrides)+len(busy))
	out = append(out, overrides...)
	for _, b := range busy {
		if !b.End.After(b.Start) {
			continue
		}
		out = append(out, engine.Override{StartAt: b.Start.UTC(), EndAt: b.End.UTC(), Kind: engine.OverrideUnavailable})
	}
	return out
}
