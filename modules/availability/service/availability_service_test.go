package service

import (
	"context"
	"testing"
	"time"

	"fairmeet/core/errors"
	"fairmeet/modules/availability/dto"
	"fairmeet/modules/availability/entity"

	"github.com/google/uuid"
)

type fakeRepo struct {
	profiles  map[uuid.UUID]*entity.AvailabilityProfile
	windows   map[uuid.UUID][]entity.WeeklyWindow
	overrides []entity.AvailabilityOverride
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		profiles: make(map[uuid.UUID]*entity.AvailabilityProfile),
		windows:  make(map[uuid.UUID][]entity.WeeklyWindow),
	}
}

func (f *fakeRepo) GetProfile(_ context.Context, userID uuid.UUID) (*entity.AvailabilityProfile, error) {
	return f.profiles[userID], nil
}

func (f *fakeRepo) UpsertProfile(_ context.Context, userID uuid.UUID, tz string) (*entity.AvailabilityProfile, error) {
	p := &entity.AvailabilityProfile{UserID: userID, TimeZone: tz, UpdatedAt: time.Now()}
	f.profiles[userID] = p
	return p, nil
}

func (f *fakeRepo) ListWindows(_ context.Context, userID uuid.UUID) ([]entity.WeeklyWindow, error) {
	return f.windows[userID], nil
}

func (f *fakeRepo) ReplaceWindows(_ context.Context, userID uuid.UUID, windows []entity.WeeklyWindow) error {
	f.windows[userID] = windows
	return nil
}

func (f *fakeRepo) ListOverrides(_ context.Context, userID uuid.UUID, from, to time.Time) ([]entity.AvailabilityOverride, error) {
	var out []entity.AvailabilityOverride
	for _, o := range f.overrides {
		if o.UserID == userID && o.DeletedAt == nil && o.StartAt.Before(to) && o.EndAt.After(from) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateOverride(_ context.Context, o *entity.AvailabilityOverride) (*entity.AvailabilityOverride, error) {
	created := *o
	created.ID = uuid.New()
	created.UpdatedAt = time.Now()
	f.overrides = append(f.overrides, created)
	return &created, nil
}

func (f *fakeRepo) SoftDeleteOverride(_ context.Context, userID, id uuid.UUID) (bool, error) {
	for i := range f.overrides {
		if f.overrides[i].ID == id && f.overrides[i].UserID == userID && f.overrides[i].DeletedAt == nil {
			now := time.Now()
			f.overrides[i].DeletedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func TestSetProfile_ValidatesZone(t *testing.T) {
	svc := NewAvailabilityService(newFakeRepo(), 31)
	userID := uuid.New()

	if _, appErr := svc.SetProfile(context.Background(), userID, &dto.SetProfileRequest{TimeZone: "Mars/Base"}); appErr == nil || appErr.Code != errors.ErrInvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %v", appErr)
	}
	got, appErr := svc.SetProfile(context.Background(), userID, &dto.SetProfileRequest{TimeZone: "Asia/Kolkata"})
	if appErr != nil || got.TimeZone != "Asia/Kolkata" {
		t.Fatalf("expected profile saved, got %+v %v", got, appErr)
	}
}

func TestReplaceWindows_Validates(t *testing.T) {
	svc := NewAvailabilityService(newFakeRepo(), 31)
	userID := uuid.New()

	bad := []dto.WindowDTO{
		{DayOfWeek: 0, StartMinute: 540, EndMinute: 600},
		{DayOfWeek: 8, StartMinute: 540, EndMinute: 600},
		{DayOfWeek: 1, StartMinute: 600, EndMinute: 600},
		{DayOfWeek: 1, StartMinute: -1, EndMinute: 600},
		{DayOfWeek: 1, StartMinute: 0, EndMinute: 1441},
	}
	for _, w := range bad {
		_, appErr := svc.ReplaceWindows(context.Background(), userID, &dto.ReplaceWindowsRequest{Windows: []dto.WindowDTO{w}})
		if appErr == nil || appErr.Code != errors.ErrInvalidInput {
			t.Fatalf("expected %+v to be rejected, got %v", w, appErr)
		}
	}

	got, appErr := svc.ReplaceWindows(context.Background(), userID, &dto.ReplaceWindowsRequest{
		Windows: []dto.WindowDTO{{DayOfWeek: 7, StartMinute: 0, EndMinute: 1440}},
	})
	if appErr != nil || len(got.Windows) != 1 || got.TimeZone != DefaultTimeZone {
		t.Fatalf("unexpected result %+v %v", got, appErr)
	}
}

func TestCreateAndDeleteOverride(t *testing.T) {
	repo := newFakeRepo()
	svc := NewAvailabilityService(repo, 31)
	userID := uuid.New()
	start := time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC)

	if _, appErr := svc.CreateOverride(context.Background(), userID, &dto.CreateOverrideRequest{StartAt: start, EndAt: start, Kind: "UNAVAILABLE"}); appErr == nil {
		t.Fatalf("expected empty span to be rejected")
	}
	if _, appErr := svc.CreateOverride(context.Background(), userID, &dto.CreateOverrideRequest{StartAt: start, EndAt: start.Add(time.Hour), Kind: "MAYBE"}); appErr == nil {
		t.Fatalf("expected unknown kind to be rejected")
	}

	created, appErr := svc.CreateOverride(context.Background(), userID, &dto.CreateOverrideRequest{
		StartAt: start, EndAt: start.Add(time.Hour), Kind: "unavailable", Note: " dentist ",
	})
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if created.Kind != "UNAVAILABLE" || created.Note != "dentist" {
		t.Fatalf("unexpected override %+v", created)
	}

	id := uuid.MustParse(created.ID)
	if appErr := svc.DeleteOverride(context.Background(), uuid.New(), id); appErr == nil || appErr.Code != errors.ErrNotFound {
		t.Fatalf("expected other user delete to be NOT_FOUND, got %v", appErr)
	}
	if appErr := svc.DeleteOverride(context.Background(), userID, id); appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	listed, appErr := svc.ListOverrides(context.Background(), userID, "2026-10-20", "2026-10-20")
	if appErr != nil || len(listed) != 0 {
		t.Fatalf("expected deleted override hidden, got %v %v", listed, appErr)
	}
}

func TestGetEffective_AppliesOverrides(t *testing.T) {
	repo := newFakeRepo()
	svc := NewAvailabilityService(repo, 31)
	userID := uuid.New()
	ctx := context.Background()

	if _, appErr := svc.SetProfile(ctx, userID, &dto.SetProfileRequest{TimeZone: "America/New_York"}); appErr != nil {
		t.Fatalf("set profile: %v", appErr)
	}
	if _, appErr := svc.ReplaceWindows(ctx, userID, &dto.ReplaceWindowsRequest{
		Windows: []dto.WindowDTO{{DayOfWeek: 2, StartMinute: 540, EndMinute: 720}},
	}); appErr != nil {
		t.Fatalf("replace windows: %v", appErr)
	}
	blocked := time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC)
	if _, appErr := svc.CreateOverride(ctx, userID, &dto.CreateOverrideRequest{
		StartAt: blocked, EndAt: blocked.Add(time.Hour), Kind: "UNAVAILABLE",
	}); appErr != nil {
		t.Fatalf("create override: %v", appErr)
	}

	got, appErr := svc.GetEffective(ctx, userID, "2026-10-20", "2026-10-21")
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if len(got.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(got.Days))
	}
	tue := got.Days[0]
	if tue.Date != "2026-10-20" || len(tue.Intervals) != 1 || tue.Intervals[0].Label != "09:00-11:00" {
		t.Fatalf("unexpected tuesday %+v", tue)
	}
	if len(got.Days[1].Intervals) != 0 {
		t.Fatalf("expected wednesday empty, got %+v", got.Days[1])
	}

	if _, appErr := svc.GetEffective(ctx, userID, "2026-10-01", "2026-12-01"); appErr == nil || appErr.Code != errors.ErrInvalidInput {
		t.Fatalf("expected range limit error, got %v", appErr)
	}
	if _, appErr := svc.GetEffective(ctx, userID, "2026-10-21", "2026-10-20"); appErr == nil {
		t.Fatalf("expected inverted range error")
	}
}
