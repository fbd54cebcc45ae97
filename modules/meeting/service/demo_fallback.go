package service

import (
	"encoding/binary"
	"fmt"
	"time"

	calendarEntity "fairmeet/modules/calendar/entity"

	"golang.org/x/crypto/blake2b"
)

// DemoFallbackProvider invents stable busy time for attendees who never connected a
// calendar, so demo rankings are not uniformly perfect. The same user and week always
// produce the same blocks.
type DemoFallbackProvider struct {
	PatternsPerWeek int
}

func NewDemoFallbackProvider(patternsPerWeek int) *DemoFallbackProvider {
	return &DemoFallbackProvider{PatternsPerWeek: patternsPerWeek}
}

// BusyBlocks returns the pseudo-random weekday blocks overlapping [from, to).
// Each pattern lands Monday to Friday, starting on the hour between 09:00 and 16:00 UTC,
// and lasts 30 or 60 minutes.
func (p *DemoFallbackProvider) BusyBlocks(userID string, from, to time.Time) []calendarEntity.TimeRange {
	if p == nil || p.PatternsPerWeek <= 0 || !to.After(from) {
		return nil
	}

	var out []calendarEntity.TimeRange
	for monday := isoWeekStart(from.UTC()); monday.Before(to); monday = monday.AddDate(0, 0, 7) {
		year, week := monday.ISOWeek()
		label := fmt.Sprintf("%d-W%02d", year, week)
		for i := 0; i < p.PatternsPerWeek; i++ {
			seed := demoSeed(userID, label, i)
			weekday := int(seed % 5)
			hour := 9 + int((seed/5)%8)
			minutes := 30
			if (seed/40)%2 == 1 {
				minutes = 60
			}
			start := monday.AddDate(0, 0, weekday).Add(time.Duration(hour) * time.Hour)
			end := start.Add(time.Duration(minutes) * time.Minute)
			if start.Before(to) && end.After(from) {
				out = append(out, calendarEntity.TimeRange{Start: start, End: end})
			}
		}
	}
	return out
}

func demoSeed(userID, week string, pattern int) uint64 {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s|%s|%d", userID, week, pattern)))
	return binary.BigEndian.Uint64(sum[:8])
}

// isoWeekStart returns 00:00 UTC of the Monday of t's ISO week.
func isoWeekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
