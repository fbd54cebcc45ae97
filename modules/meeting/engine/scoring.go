package engine

import (
	"fmt"
	"sort"
	"time"
)

const (
	weightAttendance    = 0.6
	weightInconvenience = 0.2
	weightFairness      = 0.2
)

// penaltyBands are checked in order; the first band containing the span wins.
var penaltyBands = []struct {
	start, end int
	penalty    float64
}{
	{9 * 60, 17 * 60, 0},
	{8 * 60, 18 * 60, 0.25},
	{7 * 60, 19 * 60, 0.6},
}

// Penalty returns the local time-of-day inconvenience of [startMinute, endMinute].
func Penalty(startMinute, endMinute int) float64 {
	for _, b := range penaltyBands {
		if startMinute >= b.start && endMinute <= b.end {
			return b.penalty
		}
	}
	return 1
}

// Suggest generates, scores and ranks candidate windows for the request.
func Suggest(req Request) ([]Candidate, error) {
	loc, err := validate(req)
	if err != nil {
		return nil, err
	}

	attendees := uniqueAttendees(req.Attendees)
	resolver := NewResolver(attendees)

	windows := GenerateWindows(WindowSpec{
		Location:        loc,
		RangeStart:      req.RangeStart,
		RangeEnd:        req.RangeEnd,
		DurationMinutes: req.DurationMinutes,
		StepMinutes:     req.StepMinutes,
		DayStartMinute:  req.DayStartMinute,
		DayEndMinute:    req.DayEndMinute,
	})

	candidates := make([]Candidate, 0, len(windows))
	for _, w := range windows {
		c, ok := scoreWindow(w, attendees, resolver)
		if !ok {
			continue
		}
		candidates = append(candidates, c)
	}

	rankCandidates(candidates)

	limit := req.MaxCandidates
	if limit <= 0 {
		limit = DefaultMaxCandidates
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates, nil
}

func validate(req Request) (*time.Location, error) {
	if len(req.Attendees) == 0 {
		return nil, ErrNoAttendees
	}
	if req.DayStartMinute < 0 || req.DayEndMinute > MinutesPerDay || req.DayStartMinute >= req.DayEndMinute {
		return nil, fmt.Errorf("%w: %d..%d", ErrInvalidDayBounds, req.DayStartMinute, req.DayEndMinute)
	}
	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDuration, req.DurationMinutes)
	}
	if req.StepMinutes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStep, req.StepMinutes)
	}
	if req.RangeEnd.Before(req.RangeStart) {
		return nil, fmt.Errorf("%w: %s..%s", ErrInvalidRange, req.RangeStart, req.RangeEnd)
	}
	if req.TimeZone == "" {
		return nil, ErrInvalidTimeZone
	}
	loc, err := time.LoadLocation(req.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, req.TimeZone)
	}
	return loc, nil
}

func uniqueAttendees(in []AttendeeAvailability) []AttendeeAvailability {
	seen := make(map[string]struct{}, len(in))
	out := make([]AttendeeAvailability, 0, len(in))
	for _, a := range in {
		if _, ok := seen[a.UserID]; ok {
			continue
		}
		seen[a.UserID] = struct{}{}
		out = append(out, a)
	}
	return out
}

type worstLocal struct {
	userID   string
	start    time.Time
	end      time.Time
	penalty  float64
	timeZone string
}

func scoreWindow(w Window, attendees []AttendeeAvailability, resolver *Resolver) (Candidate, bool) {
	available := make([]string, 0, len(attendees))
	missing := make([]string, 0, len(attendees))

	var sumPenalty, maxPenalty float64
	var worst *worstLocal

	for _, a := range attendees {
		penalty, localStart, localEnd, ok := attendeePenalty(w, a.UserID, resolver)
		if !ok {
			missing = append(missing, a.UserID)
			continue
		}
		available = append(available, a.UserID)
		sumPenalty += penalty
		if penalty > maxPenalty {
			maxPenalty = penalty
			worst = &worstLocal{userID: a.UserID, start: localStart, end: localEnd, penalty: penalty, timeZone: a.TimeZone}
		}
	}

	ratio := float64(len(available)) / float64(len(attendees))
	if ratio <= 0 {
		return Candidate{}, false
	}

	attendance := clamp01(ratio)
	inconvenience := clamp01(1 - sumPenalty/float64(len(available)))
	fairness := clamp01(1 - maxPenalty)
	total := clamp01(weightAttendance*attendance + weightInconvenience*inconvenience + weightFairness*fairness)

	explanation := []string{
		fmt.Sprintf("%d/%d attendees available", len(available), len(attendees)),
		fmt.Sprintf("attendance score %.2f", attendance),
		fmt.Sprintf("inconvenience score %.2f", inconvenience),
		fmt.Sprintf("fairness score %.2f", fairness),
	}
	if worst != nil {
		explanation = append(explanation, fmt.Sprintf("least convenient for %s at %s-%s %s (penalty %.2f)",
			worst.userID, worst.start.Format("15:04"), worst.end.Format("15:04"), worst.timeZone, worst.penalty))
	}

	return Candidate{
		StartAt:         w.StartAt,
		EndAt:           w.EndAt,
		AttendanceRatio: ratio,
		Scores: Scores{
			Total:         total,
			Attendance:    attendance,
			Inconvenience: inconvenience,
			Fairness:      fairness,
		},
		AvailableUserIDs: available,
		MissingUserIDs:   missing,
		Explanation:      explanation,
	}, true
}

// attendeePenalty reports whether userID is available for the whole window and, if so,
// the penalty of the window in their local time. A window crossing local midnight is
// treated as unavailable.
func attendeePenalty(w Window, userID string, resolver *Resolver) (float64, time.Time, time.Time, bool) {
	loc := resolver.Location(userID)
	if loc == nil {
		return 0, time.Time{}, time.Time{}, false
	}

	localStart := w.StartAt.In(loc)
	localEnd := w.EndAt.In(loc)
	date := DateOf(localStart)
	if DateOf(localEnd) != date {
		return 0, time.Time{}, time.Time{}, false
	}

	startMin := LocalMinutesOfDay(localStart)
	endMin := LocalMinutesOfDay(localEnd)
	for _, in := range resolver.Resolve(userID, date) {
		if in.Covers(startMin, endMin) {
			return Penalty(startMin, endMin), localStart, localEnd, true
		}
	}
	return 0, time.Time{}, time.Time{}, false
}

func rankCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Scores.Total != b.Scores.Total {
			return a.Scores.Total > b.Scores.Total
		}
		if a.Scores.Attendance != b.Scores.Attendance {
			return a.Scores.Attendance > b.Scores.Attendance
		}
		if a.Scores.Fairness != b.Scores.Fairness {
			return a.Scores.Fairness > b.Scores.Fairness
		}
		return a.StartAt.Before(b.StartAt)
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
