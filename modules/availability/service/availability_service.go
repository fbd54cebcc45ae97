package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fairmeet/core/errors"
	"fairmeet/core/logger"
	"fairmeet/modules/availability/dto"
	"fairmeet/modules/availability/entity"
	"fairmeet/modules/availability/repository"
	"fairmeet/modules/meeting/engine"

	"github.com/google/uuid"
)

// DefaultTimeZone is used for users who never set a profile.
const DefaultTimeZone = "UTC"

const maxOverrideSpan = 31 * 24 * time.Hour

type AvailabilityServiceInterface interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, *errors.AppError)
	SetProfile(ctx context.Context, userID uuid.UUID, req *dto.SetProfileRequest) (*dto.ProfileResponse, *errors.AppError)
	GetWindows(ctx context.Context, userID uuid.UUID) (*dto.WindowsResponse, *errors.AppError)
	ReplaceWindows(ctx context.Context, userID uuid.UUID, req *dto.ReplaceWindowsRequest) (*dto.WindowsResponse, *errors.AppError)
	ListOverrides(ctx context.Context, userID uuid.UUID, from, to string) ([]dto.OverrideResponse, *errors.AppError)
	CreateOverride(ctx context.Context, userID uuid.UUID, req *dto.CreateOverrideRequest) (*dto.OverrideResponse, *errors.AppError)
	DeleteOverride(ctx context.Context, userID, overrideID uuid.UUID) *errors.AppError
	GetEffective(ctx context.Context, userID uuid.UUID, from, to string) (*dto.EffectiveResponse, *errors.AppError)
}

type AvailabilityService struct {
	repo         repository.AvailabilityRepositoryInterface
	maxRangeDays int
}

func NewAvailabilityService(repo repository.AvailabilityRepositoryInterface, maxRangeDays int) AvailabilityServiceInterface {
	return &AvailabilityService{repo: repo, maxRangeDays: maxRangeDays}
}

// ===================== Profile =====================

func (s *AvailabilityService) GetProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, *errors.AppError) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get availability profile", err)
	}
	if profile == nil {
		profile = &entity.AvailabilityProfile{UserID: userID, TimeZone: DefaultTimeZone}
	}
	return dto.ToProfileResponse(profile), nil
}

func (s *AvailabilityService) SetProfile(ctx context.Context, userID uuid.UUID, req *dto.SetProfileRequest) (*dto.ProfileResponse, *errors.AppError) {
	tz := strings.TrimSpace(req.TimeZone)
	if tz == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "time_zone is required", nil)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, fmt.Sprintf("unknown time zone %q", tz), err)
	}

	profile, err := s.repo.UpsertProfile(ctx, userID, tz)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrUpdateFailed, "Failed to save availability profile", err)
	}

	logger.Info("AvailabilityService:SetProfile", "user_id", userID.String(), "time_zone", tz)
	return dto.ToProfileResponse(profile), nil
}

// ===================== Weekly windows =====================

func (s *AvailabilityService) GetWindows(ctx context.Context, userID uuid.UUID) (*dto.WindowsResponse, *errors.AppError) {
	tz, appErr := s.timeZone(ctx, userID)
	if appErr != nil {
		return nil, appErr
	}
	windows, err := s.repo.ListWindows(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get weekly windows", err)
	}
	return &dto.WindowsResponse{TimeZone: tz, Windows: dto.ToWindowDTOs(windows)}, nil
}

func (s *AvailabilityService) ReplaceWindows(ctx context.Context, userID uuid.UUID, req *dto.ReplaceWindowsRequest) (*dto.WindowsResponse, *errors.AppError) {
	windows := make([]entity.WeeklyWindow, 0, len(req.Windows))
	for i, w := range req.Windows {
		if err := ValidateWindow(w); err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, fmt.Sprintf("windows[%d]: %v", i, err), nil)
		}
		windows = append(windows, entity.WeeklyWindow{
			UserID:      userID,
			DayOfWeek:   w.DayOfWeek,
			StartMinute: w.StartMinute,
			EndMinute:   w.EndMinute,
		})
	}

	if err := s.repo.ReplaceWindows(ctx, userID, windows); err != nil {
		return nil, errors.NewAppError(errors.ErrUpdateFailed, "Failed to save weekly windows", err)
	}

	logger.Info("AvailabilityService:ReplaceWindows", "user_id", userID.String(), "count", len(windows))
	return s.GetWindows(ctx, userID)
}

// ValidateWindow checks an ISO weekday and a non-empty minute range within one day.
func ValidateWindow(w dto.WindowDTO) error {
	if w.DayOfWeek < 1 || w.DayOfWeek > 7 {
		return fmt.Errorf("day_of_week must be 1..7, got %d", w.DayOfWeek)
	}
	if w.StartMinute < 0 || w.EndMinute > engine.MinutesPerDay || w.StartMinute >= w.EndMinute {
		return fmt.Errorf("minutes must satisfy 0 <= start < end <= %d", engine.MinutesPerDay)
	}
	return nil
}

// ===================== Overrides =====================

func (s *AvailabilityService) ListOverrides(ctx context.Context, userID uuid.UUID, from, to string) ([]dto.OverrideResponse, *errors.AppError) {
	start, end, appErr := s.parseRange(from, to)
	if appErr != nil {
		return nil, appErr
	}

	overrides, err := s.repo.ListOverrides(ctx, userID, start, end)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to list overrides", err)
	}

	result := make([]dto.OverrideResponse, 0, len(overrides))
	for i := range overrides {
		result = append(result, dto.ToOverrideResponse(&overrides[i]))
	}
	return result, nil
}

func (s *AvailabilityService) CreateOverride(ctx context.Context, userID uuid.UUID, req *dto.CreateOverrideRequest) (*dto.OverrideResponse, *errors.AppError) {
	kind := entity.OverrideKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	if !kind.Valid() {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "kind must be AVAILABLE or UNAVAILABLE", nil)
	}
	if req.StartAt.IsZero() || !req.EndAt.After(req.StartAt) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "end_at must be after start_at", nil)
	}
	if req.EndAt.Sub(req.StartAt) > maxOverrideSpan {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "override may span at most 31 days", nil)
	}

	o := &entity.AvailabilityOverride{
		UserID:  userID,
		StartAt: req.StartAt.UTC(),
		EndAt:   req.EndAt.UTC(),
		Kind:    kind,
	}
	if note := strings.TrimSpace(req.Note); note != "" {
		o.Note = &note
	}

	created, err := s.repo.CreateOverride(ctx, o)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to create override", err)
	}

	logger.Info("AvailabilityService:CreateOverride",
		"user_id", userID.String(),
		"override_id", created.ID.String(),
		"kind", string(kind))
	resp := dto.ToOverrideResponse(created)
	return &resp, nil
}

func (s *AvailabilityService) DeleteOverride(ctx context.Context, userID, overrideID uuid.UUID) *errors.AppError {
	ok, err := s.repo.SoftDeleteOverride(ctx, userID, overrideID)
	if err != nil {
		return errors.NewAppError(errors.ErrDeleteFailed, "Failed to delete override", err)
	}
	if !ok {
		return errors.NewAppError(errors.ErrNotFound, "Override not found", nil)
	}
	logger.Info("AvailabilityService:DeleteOverride", "user_id", userID.String(), "override_id", overrideID.String())
	return nil
}

// ===================== Effective availability =====================

// GetEffective resolves the template and the user's own overrides for every local date in [from, to].
func (s *AvailabilityService) GetEffective(ctx context.Context, userID uuid.UUID, from, to string) (*dto.EffectiveResponse, *errors.AppError) {
	fromDate, toDate, appErr := s.parseDates(from, to)
	if appErr != nil {
		return nil, appErr
	}

	tz, appErr := s.timeZone(ctx, userID)
	if appErr != nil {
		return nil, appErr
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Stored time zone is invalid", err)
	}

	windows, err := s.repo.ListWindows(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get weekly windows", err)
	}
	overrides, err := s.repo.ListOverrides(ctx, userID,
		engine.LocalMidnight(fromDate, loc),
		engine.LocalMidnight(toDate.AddDays(1), loc))
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to list overrides", err)
	}

	attendee := ToAttendeeAvailability(userID, tz, windows, overrides)
	resolver := engine.NewResolver([]engine.AttendeeAvailability{attendee})

	resp := &dto.EffectiveResponse{TimeZone: tz}
	for d := fromDate; !d.After(toDate); d = d.AddDays(1) {
		resp.Days = append(resp.Days, dto.ToEffectiveDay(d, resolver.Resolve(attendee.UserID, d)))
	}
	return resp, nil
}

// ToAttendeeAvailability converts stored rows into the engine's attendee snapshot.
func ToAttendeeAvailability(userID uuid.UUID, tz string, windows []entity.WeeklyWindow, overrides []entity.AvailabilityOverride) engine.AttendeeAvailability {
	a := engine.AttendeeAvailability{
		UserID:    userID.String(),
		TimeZone:  tz,
		Windows:   make([]engine.WeeklyWindow, 0, len(windows)),
		Overrides: make([]engine.Override, 0, len(overrides)),
	}
	for _, w := range windows {
		a.Windows = append(a.Windows, engine.WeeklyWindow{DayOfWeek: w.DayOfWeek, StartMinute: w.StartMinute, EndMinute: w.EndMinute})
	}
	for _, o := range overrides {
		if o.DeletedAt != nil {
			continue
		}
		a.Overrides = append(a.Overrides, engine.Override{StartAt: o.StartAt.UTC(), EndAt: o.EndAt.UTC(), Kind: engine.OverrideKind(o.Kind)})
	}
	return a
}

func (s *AvailabilityService) timeZone(ctx context.Context, userID uuid.UUID) (string, *errors.AppError) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return "", errors.NewAppError(errors.ErrGetFailed, "Failed to get availability profile", err)
	}
	if profile == nil || profile.TimeZone == "" {
		return DefaultTimeZone, nil
	}
	return profile.TimeZone, nil
}

func (s *AvailabilityService) parseDates(from, to string) (engine.Date, engine.Date, *errors.AppError) {
	fromDate, err := engine.ParseDate(from)
	if err != nil {
		return engine.Date{}, engine.Date{}, errors.NewAppError(errors.ErrInvalidInput, "from must be YYYY-MM-DD", err)
	}
	toDate, err := engine.ParseDate(to)
	if err != nil {
		return engine.Date{}, engine.Date{}, errors.NewAppError(errors.ErrInvalidInput, "to must be YYYY-MM-DD", err)
	}
	if toDate.Before(fromDate) {
		return engine.Date{}, engine.Date{}, errors.NewAppError(errors.ErrInvalidInput, "to must not be before from", nil)
	}
	if days := fromDate.DaysUntil(toDate) + 1; s.maxRangeDays > 0 && days > s.maxRangeDays {
		return engine.Date{}, engine.Date{}, errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("range may cover at most %d days", s.maxRangeDays), nil)
	}
	return fromDate, toDate, nil
}

// parseRange converts a date range to a UTC span padded by a day on each side.
func (s *AvailabilityService) parseRange(from, to string) (time.Time, time.Time, *errors.AppError) {
	fromDate, toDate, appErr := s.parseDates(from, to)
	if appErr != nil {
		return time.Time{}, time.Time{}, appErr
	}
	return engine.LocalMidnight(fromDate.AddDays(-1), time.UTC), engine.LocalMidnight(toDate.AddDays(2), time.UTC), nil
}
