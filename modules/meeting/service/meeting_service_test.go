package service

import (
	"context"
	"testing"
	"time"

	"fairmeet/core/cache"
	"fairmeet/core/errors"
	availabilityEntity "fairmeet/modules/availability/entity"
	calendarEntity "fairmeet/modules/calendar/entity"
	"fairmeet/modules/meeting/dto"
	"fairmeet/modules/meeting/engine"
	"fairmeet/modules/meeting/entity"

	"github.com/google/uuid"
)

type fakeRepo struct {
	profiles  []availabilityEntity.AvailabilityProfile
	windows   []availabilityEntity.WeeklyWindow
	overrides []availabilityEntity.AvailabilityOverride
	busy      []calendarEntity.BusyBlock
	connected []uuid.UUID
	activity  map[uuid.UUID]time.Time
	changed   map[uuid.UUID]time.Time
	runs      []entity.SuggestionRun
	meetings  []entity.Meeting
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{activity: make(map[uuid.UUID]time.Time), changed: make(map[uuid.UUID]time.Time)}
}

func wanted(ids []uuid.UUID) map[uuid.UUID]bool {
	m := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func (f *fakeRepo) ListProfiles(_ context.Context, ids []uuid.UUID) ([]availabilityEntity.AvailabilityProfile, error) {
	w := wanted(ids)
	var out []availabilityEntity.AvailabilityProfile
	for _, p := range f.profiles {
		if w[p.UserID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListWindows(_ context.Context, ids []uuid.UUID) ([]availabilityEntity.WeeklyWindow, error) {
	w := wanted(ids)
	var out []availabilityEntity.WeeklyWindow
	for _, win := range f.windows {
		if w[win.UserID] {
			out = append(out, win)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListOverrides(_ context.Context, ids []uuid.UUID, from, to time.Time) ([]availabilityEntity.AvailabilityOverride, error) {
	w := wanted(ids)
	var out []availabilityEntity.AvailabilityOverride
	for _, o := range f.overrides {
		if w[o.UserID] && o.StartAt.Before(to) && o.EndAt.After(from) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListBusyBlocks(_ context.Context, ids []uuid.UUID, from, to time.Time) ([]calendarEntity.BusyBlock, error) {
	w := wanted(ids)
	var out []calendarEntity.BusyBlock
	for _, b := range f.busy {
		if w[b.UserID] && b.StartUTC.Before(to) && b.EndUTC.After(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListConnectedUserIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	w := wanted(ids)
	var out []uuid.UUID
	for _, id := range f.connected {
		if w[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetActivity(_ context.Context, ids []uuid.UUID) ([]engine.AttendeeActivity, error) {
	out := make([]engine.AttendeeActivity, 0, len(ids))
	for _, id := range ids {
		a := engine.AttendeeActivity{UserID: id.String(), TemplateUpdatedAt: f.activity[id], BusyChangedAt: f.changed[id]}
		for _, b := range f.busy {
			if b.UserID == id && b.CreatedAt.After(a.BusyCreatedAt) {
				a.BusyCreatedAt = b.CreatedAt
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) CreateRun(_ context.Context, run *entity.SuggestionRun) (*entity.SuggestionRun, error) {
	saved := *run
	saved.CreatedAt = time.Now()
	f.runs = append(f.runs, saved)
	return &saved, nil
}

func (f *fakeRepo) GetRun(_ context.Context, id string) (*entity.SuggestionRun, error) {
	for i := range f.runs {
		if f.runs[i].ID == id {
			run := f.runs[i]
			return &run, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) FindLatestRun(_ context.Context, createdBy uuid.UUID, key, fingerprint string, max int) (*entity.SuggestionRun, error) {
	for i := len(f.runs) - 1; i >= 0; i-- {
		r := f.runs[i]
		if r.CreatedBy == createdBy && r.RequestKey == key && r.DataFingerprint == fingerprint && r.MaxCandidates == max {
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CreateMeeting(_ context.Context, m *entity.Meeting) (*entity.Meeting, error) {
	saved := *m
	saved.ID = uuid.New()
	saved.CreatedAt = time.Now()
	f.meetings = append(f.meetings, saved)
	return &saved, nil
}

func (f *fakeRepo) GetMeetingByID(_ context.Context, id uuid.UUID) (*entity.Meeting, error) {
	for i := range f.meetings {
		if f.meetings[i].ID == id {
			m := f.meetings[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListMeetingsForUser(_ context.Context, userID uuid.UUID) ([]entity.Meeting, error) {
	var out []entity.Meeting
	for _, m := range f.meetings {
		if m.HasAttendee(userID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListOverlappingMeetings(_ context.Context, ids []uuid.UUID, from, to time.Time) ([]entity.Meeting, error) {
	w := wanted(ids)
	var out []entity.Meeting
	for _, m := range f.meetings {
		if m.Status != entity.MeetingStatusScheduled || !m.StartAt.Before(to) || !m.EndAt.After(from) {
			continue
		}
		for _, raw := range m.AttendeeIDs {
			if w[uuid.MustParse(raw)] {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

var testLimits = Limits{
	DefaultMaxCandidates: 25,
	MaxCandidatesLimit:   100,
	MaxRangeDays:         31,
	MaxAttendees:         3,
	MinStepMinutes:       5,
	CacheTTL:             time.Minute,
}

// seedTwoOffices gives one New York and one London attendee a 09:00-17:00 weekday template.
func seedTwoOffices(repo *fakeRepo) (uuid.UUID, uuid.UUID) {
	ny, london := uuid.New(), uuid.New()
	repo.profiles = append(repo.profiles,
		availabilityEntity.AvailabilityProfile{UserID: ny, TimeZone: "America/New_York"},
		availabilityEntity.AvailabilityProfile{UserID: london, TimeZone: "Europe/London"},
	)
	for day := 1; day <= 5; day++ {
		repo.windows = append(repo.windows,
			availabilityEntity.WeeklyWindow{UserID: ny, DayOfWeek: day, StartMinute: 540, EndMinute: 1020},
			availabilityEntity.WeeklyWindow{UserID: london, DayOfWeek: day, StartMinute: 540, EndMinute: 1020},
		)
	}
	stamp := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	repo.activity[ny] = stamp
	repo.activity[london] = stamp
	return ny, london
}

func suggestRequest(ids ...uuid.UUID) *dto.SuggestRequest {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	return &dto.SuggestRequest{
		Title:           "Planning",
		TimeZone:        "UTC",
		RangeStart:      "2026-10-20",
		RangeEnd:        "2026-10-20",
		DurationMinutes: 60,
		StepMinutes:     60,
		AttendeeIDs:     raw,
	}
}

func TestSuggest_Validation(t *testing.T) {
	svc := NewMeetingService(newFakeRepo(), NewSnapshotLoader(newFakeRepo(), nil), nil, testLimits)
	id := uuid.New()

	tests := []struct {
		name   string
		mutate func(r *dto.SuggestRequest)
	}{
		{"no attendees", func(r *dto.SuggestRequest) { r.AttendeeIDs = nil }},
		{"bad attendee id", func(r *dto.SuggestRequest) { r.AttendeeIDs = []string{"nope"} }},
		{"too many attendees", func(r *dto.SuggestRequest) {
			r.AttendeeIDs = []string{uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString()}
		}},
		{"missing zone", func(r *dto.SuggestRequest) { r.TimeZone = "" }},
		{"bad zone", func(r *dto.SuggestRequest) { r.TimeZone = "Nowhere/City" }},
		{"bad date", func(r *dto.SuggestRequest) { r.RangeStart = "20-10-2026" }},
		{"inverted range", func(r *dto.SuggestRequest) { r.RangeStart, r.RangeEnd = "2026-10-21", "2026-10-20" }},
		{"range too long", func(r *dto.SuggestRequest) { r.RangeStart, r.RangeEnd = "2026-10-01", "2026-11-01" }},
		{"short duration", func(r *dto.SuggestRequest) { r.DurationMinutes = 4 }},
		{"long duration", func(r *dto.SuggestRequest) { r.DurationMinutes = 1441 }},
		{"small step", func(r *dto.SuggestRequest) { r.StepMinutes = 1 }},
		{"inverted day bounds", func(r *dto.SuggestRequest) { r.DayStartMinute, r.DayEndMinute = 600, 540 }},
		{"day end past midnight", func(r *dto.SuggestRequest) { r.DayStartMinute, r.DayEndMinute = 0, 1500 }},
		{"cap above limit", func(r *dto.SuggestRequest) { r.MaxCandidates = 101 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := suggestRequest(id)
			tt.mutate(req)
			_, appErr := svc.Suggest(context.Background(), id, req)
			if appErr == nil || appErr.Code != errors.ErrInvalidInput {
				t.Fatalf("expected INVALID_INPUT, got %v", appErr)
			}
		})
	}
}

func TestSuggest_RanksAndReuses(t *testing.T) {
	repo := newFakeRepo()
	ny, london := seedTwoOffices(repo)
	svc := NewMeetingService(repo, NewSnapshotLoader(repo, nil), cache.NewMemoryCache(), testLimits)
	ctx := context.Background()

	first, appErr := svc.Suggest(ctx, ny, suggestRequest(ny, london, ny))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if first.Reused || first.RunID == "" || len(first.Candidates) == 0 {
		t.Fatalf("unexpected first response %+v", first)
	}
	top := first.Candidates[0]
	if top.Rank != 1 || top.AttendanceRatio != 1 {
		t.Fatalf("expected full attendance on top, got %+v", top)
	}
	// both offices overlap 13:00-16:00 UTC on 2026-10-20
	if top.StartAt.Hour() < 13 || top.EndAt.After(time.Date(2026, 10, 20, 16, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected top window %s-%s", top.StartAt, top.EndAt)
	}
	if len(repo.runs) != 1 || len(repo.runs[0].AttendeeIDs) != 2 {
		t.Fatalf("expected one run with deduplicated attendees, got %+v", repo.runs)
	}

	// attendee order does not change the request key
	second, appErr := svc.Suggest(ctx, ny, suggestRequest(london, ny))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if !second.Reused || second.RunID != first.RunID || second.RequestKey != first.RequestKey {
		t.Fatalf("expected cached reuse, got %+v", second)
	}
	if len(repo.runs) != 1 {
		t.Fatalf("expected no new run, got %d", len(repo.runs))
	}

	repo.activity[ny] = repo.activity[ny].Add(time.Minute)
	third, appErr := svc.Suggest(ctx, ny, suggestRequest(ny, london))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if third.Reused || third.DataFingerprint == first.DataFingerprint || len(repo.runs) != 2 {
		t.Fatalf("expected a fresh run after data changed, got %+v", third)
	}
}

func TestSuggest_ReuseIsPerOrganiser(t *testing.T) {
	repo := newFakeRepo()
	ny, london := seedTwoOffices(repo)
	svc := NewMeetingService(repo, NewSnapshotLoader(repo, nil), cache.NewMemoryCache(), testLimits)
	ctx := context.Background()

	first, appErr := svc.Suggest(ctx, ny, suggestRequest(ny, london))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}

	retro := suggestRequest(london, ny)
	retro.Title = "Retro"
	second, appErr := svc.Suggest(ctx, london, retro)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if second.Reused || second.RunID == first.RunID || second.RequestKey != first.RequestKey {
		t.Fatalf("expected a separate run for the second organiser, got %+v", second)
	}
	if len(repo.runs) != 2 || repo.runs[1].CreatedBy != london {
		t.Fatalf("expected a run owned by the second organiser, got %+v", repo.runs)
	}

	if _, appErr := svc.GetRun(ctx, london, second.RunID); appErr != nil {
		t.Fatalf("organiser should see their own run: %v", appErr)
	}
	top := second.Candidates[0]
	got, appErr := svc.Confirm(ctx, london, &dto.ConfirmRequest{RunID: second.RunID, StartAt: top.StartAt, EndAt: top.EndAt})
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if got.Title != "Retro" || got.CreatedBy != london.String() {
		t.Fatalf("expected the second organiser's meeting, got %+v", got)
	}

	again, appErr := svc.Suggest(ctx, london, retro)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if !again.Reused || again.RunID != second.RunID {
		t.Fatalf("expected the organiser's own run to be reused, got %+v", again)
	}
}

func TestSuggest_ReusesStoredRunWithoutCache(t *testing.T) {
	repo := newFakeRepo()
	ny, london := seedTwoOffices(repo)
	svc := NewMeetingService(repo, NewSnapshotLoader(repo, nil), nil, testLimits)
	ctx := context.Background()

	first, appErr := svc.Suggest(ctx, ny, suggestRequest(ny, london))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	second, appErr := svc.Suggest(ctx, ny, suggestRequest(ny, london))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if !second.Reused || second.RunID != first.RunID || len(second.Candidates) != len(first.Candidates) {
		t.Fatalf("expected stored run reuse, got %+v", second)
	}

	capped := suggestRequest(ny, london)
	capped.MaxCandidates = 1
	third, appErr := svc.Suggest(ctx, ny, capped)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if third.Reused || len(third.Candidates) != 1 {
		t.Fatalf("expected a new capped run, got %+v", third)
	}
}

func TestGetRun_Access(t *testing.T) {
	repo := newFakeRepo()
	ny, london := seedTwoOffices(repo)
	svc := NewMeetingService(repo, NewSnapshotLoader(repo, nil), nil, testLimits)
	ctx := context.Background()

	run, appErr := svc.Suggest(ctx, ny, suggestRequest(ny, london))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if _, appErr := svc.GetRun(ctx, london, run.RunID); appErr != nil {
		t.Fatalf("attendee should see the run: %v", appErr)
	}
	if _, appErr := svc.GetRun(ctx, uuid.New(), run.RunID); appErr == nil || appErr.Code != errors.ErrForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", appErr)
	}
	if _, appErr := svc.GetRun(ctx, ny, "missing"); appErr == nil || appErr.Code != errors.ErrNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", appErr)
	}
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fakeRepo, MeetingServiceInterface, uuid.UUID, uuid.UUID, *dto.SuggestResponse) {
		t.Helper()
		repo := newFakeRepo()
		ny, london := seedTwoOffices(repo)
		svc := NewMeetingService(repo, NewSnapshotLoader(repo, nil), nil, testLimits)
		run, appErr := svc.Suggest(ctx, ny, suggestRequest(ny, london))
		if appErr != nil {
			t.Fatalf("suggest: %v", appErr)
		}
		return repo, svc, ny, london, run
	}

	t.Run("schedules a candidate", func(t *testing.T) {
		repo, svc, ny, london, run := setup(t)
		top := run.Candidates[0]

		got, appErr := svc.Confirm(ctx, ny, &dto.ConfirmRequest{RunID: run.RunID, StartAt: top.StartAt, EndAt: top.EndAt})
		if appErr != nil {
			t.Fatalf("unexpected error: %v", appErr)
		}
		if got.Title != "Planning" || got.Status != string(entity.MeetingStatusScheduled) || len(got.AttendeeIDs) != 2 {
			t.Fatalf("unexpected meeting %+v", got)
		}
		listed, appErr := svc.ListMeetings(ctx, london)
		if appErr != nil || len(listed) != 1 {
			t.Fatalf("expected attendee to list the meeting, got %v %v", listed, appErr)
		}
		if _, appErr := svc.GetMeeting(ctx, uuid.New(), uuid.MustParse(got.ID)); appErr == nil || appErr.Code != errors.ErrNotFound {
			t.Fatalf("expected outsider NOT_FOUND, got %v", appErr)
		}

		// the same slot cannot be booked twice
		if _, appErr := svc.Confirm(ctx, ny, &dto.ConfirmRequest{RunID: run.RunID, StartAt: top.StartAt, EndAt: top.EndAt}); appErr == nil || appErr.Code != errors.ErrConflict {
			t.Fatalf("expected CONFLICT on double booking, got %v", appErr)
		}
		if len(repo.meetings) != 1 {
			t.Fatalf("expected one meeting, got %d", len(repo.meetings))
		}
	})

	t.Run("rejects a slot outside the run", func(t *testing.T) {
		_, svc, ny, _, run := setup(t)
		start := time.Date(2026, 10, 20, 2, 0, 0, 0, time.UTC)
		_, appErr := svc.Confirm(ctx, ny, &dto.ConfirmRequest{RunID: run.RunID, StartAt: start, EndAt: start.Add(time.Hour)})
		if appErr == nil || appErr.Code != errors.ErrInvalidInput {
			t.Fatalf("expected INVALID_INPUT, got %v", appErr)
		}
	})

	t.Run("stale data", func(t *testing.T) {
		repo, svc, ny, london, run := setup(t)
		repo.activity[london] = repo.activity[london].Add(time.Second)
		top := run.Candidates[0]
		_, appErr := svc.Confirm(ctx, ny, &dto.ConfirmRequest{RunID: run.RunID, StartAt: top.StartAt, EndAt: top.EndAt})
		if appErr == nil || appErr.Code != errors.ErrStaleData {
			t.Fatalf("expected STALE_DATA, got %v", appErr)
		}
	})

	t.Run("stale after busy time is removed", func(t *testing.T) {
		repo := newFakeRepo()
		ny, london := seedTwoOffices(repo)
		synced := time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC)
		morning := time.Date(2026, 10, 20, 13, 0, 0, 0, time.UTC)
		repo.busy = []calendarEntity.BusyBlock{{UserID: london, StartUTC: morning, EndUTC: morning.Add(time.Hour), CreatedAt: synced}}
		svc := NewMeetingService(repo, NewSnapshotLoader(repo, nil), nil, testLimits)
		run, appErr := svc.Suggest(ctx, ny, suggestRequest(ny, london))
		if appErr != nil {
			t.Fatalf("suggest: %v", appErr)
		}

		// a sync that only deletes leaves no newer created_at behind
		repo.busy = nil
		repo.changed[london] = synced.Add(time.Hour)

		top := run.Candidates[0]
		_, appErr = svc.Confirm(ctx, ny, &dto.ConfirmRequest{RunID: run.RunID, StartAt: top.StartAt, EndAt: top.EndAt})
		if appErr == nil || appErr.Code != errors.ErrStaleData {
			t.Fatalf("expected STALE_DATA, got %v", appErr)
		}
		fresh, appErr := svc.Suggest(ctx, ny, suggestRequest(ny, london))
		if appErr != nil {
			t.Fatalf("suggest: %v", appErr)
		}
		if fresh.Reused || fresh.DataFingerprint == run.DataFingerprint {
			t.Fatalf("expected a fresh run after busy time was removed, got %+v", fresh)
		}
	})

	t.Run("busy attendee conflicts", func(t *testing.T) {
		repo, svc, ny, london, run := setup(t)
		top := run.Candidates[0]
		repo.busy = append(repo.busy, calendarEntity.BusyBlock{UserID: london, StartUTC: top.StartAt.Add(30 * time.Minute), EndUTC: top.EndAt.Add(time.Hour)})
		_, appErr := svc.Confirm(ctx, ny, &dto.ConfirmRequest{RunID: run.RunID, StartAt: top.StartAt, EndAt: top.EndAt})
		if appErr == nil || appErr.Code != errors.ErrConflict {
			t.Fatalf("expected CONFLICT, got %v", appErr)
		}
	})

	t.Run("touching busy block is not a conflict", func(t *testing.T) {
		repo, svc, ny, london, run := setup(t)
		top := run.Candidates[0]
		repo.busy = append(repo.busy, calendarEntity.BusyBlock{UserID: london, StartUTC: top.EndAt, EndUTC: top.EndAt.Add(time.Hour)})
		if _, appErr := svc.Confirm(ctx, ny, &dto.ConfirmRequest{RunID: run.RunID, StartAt: top.StartAt, EndAt: top.EndAt}); appErr != nil {
			t.Fatalf("unexpected error: %v", appErr)
		}
	})
}
