package service

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"fairmeet/core/cache"
	"fairmeet/core/config"
	"fairmeet/core/constants"
	"fairmeet/core/errors"
	"fairmeet/core/logger"
	"fairmeet/core/tracing"
	"fairmeet/core/utils"
	"fairmeet/modules/meeting/dto"
	"fairmeet/modules/meeting/engine"
	"fairmeet/modules/meeting/entity"
	"fairmeet/modules/meeting/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultStepMinutes = 15
	minDurationMinutes = 5
	maxTitleLength     = 200
	defaultTitle       = "Meeting"
)

// Limits bounds the cost of a single suggestion request.
type Limits struct {
	DefaultMaxCandidates int
	MaxCandidatesLimit   int
	MaxRangeDays         int
	MaxAttendees         int
	MinStepMinutes       int
	CacheTTL             time.Duration
}

func LimitsFromConfig(cfg config.SuggestionConfig) Limits {
	return Limits{
		DefaultMaxCandidates: cfg.DefaultMaxCandidates,
		MaxCandidatesLimit:   cfg.MaxCandidatesLimit,
		MaxRangeDays:         cfg.MaxRangeDays,
		MaxAttendees:         cfg.MaxAttendees,
		MinStepMinutes:       cfg.MinStepMinutes,
		CacheTTL:             cfg.CacheTTL,
	}
}

// MeetingService generates suggestion runs and confirms meetings from them
type MeetingService struct {
	repo   repository.MeetingRepositoryInterface
	loader *SnapshotLoader
	cache  cache.Cache
	limits Limits
}

// MeetingServiceInterface defines the service contract
type MeetingServiceInterface interface {
	Suggest(ctx context.Context, userID uuid.UUID, req *dto.SuggestRequest) (*dto.SuggestResponse, *errors.AppError)
	GetRun(ctx context.Context, userID uuid.UUID, runID string) (*dto.SuggestResponse, *errors.AppError)
	Confirm(ctx context.Context, userID uuid.UUID, req *dto.ConfirmRequest) (*dto.MeetingResponse, *errors.AppError)
	ListMeetings(ctx context.Context, userID uuid.UUID) ([]dto.MeetingResponse, *errors.AppError)
	GetMeeting(ctx context.Context, userID, id uuid.UUID) (*dto.MeetingResponse, *errors.AppError)
}

// NewMeetingService creates a new meeting service. c may be nil to disable run caching.
func NewMeetingService(repo repository.MeetingRepositoryInterface, loader *SnapshotLoader, c cache.Cache, limits Limits) MeetingServiceInterface {
	return &MeetingService{
		repo:   repo,
		loader: loader,
		cache:  c,
		limits: limits,
	}
}

// suggestInput is a validated suggestion request.
type suggestInput struct {
	normalized  dto.SuggestRequest
	request     engine.Request
	attendeeIDs []uuid.UUID
}

// ===================== Suggestions =====================

// Suggest returns the ranked candidates for req. An earlier run by the same user with the
// same request key, data fingerprint and cap is reused from the cache or the database
// instead of recomputing.
func (s *MeetingService) Suggest(ctx context.Context, userID uuid.UUID, req *dto.SuggestRequest) (*dto.SuggestResponse, *errors.AppError) {
	ctx, span := tracing.Start(ctx, "MeetingService.Suggest")
	defer span.End()

	in, appErr := s.validate(req)
	if appErr != nil {
		return nil, appErr
	}

	requestKey := engine.ComputeRequestKey(engine.ShapeOf(in.request))
	fingerprint, appErr := s.dataFingerprint(ctx, in.attendeeIDs)
	if appErr != nil {
		return nil, appErr
	}
	span.SetAttributes(
		attribute.String("suggestion.request_key", requestKey),
		attribute.Int("suggestion.attendees", len(in.attendeeIDs)),
	)

	cacheKey := fmt.Sprintf("%s%s:%s:%s:%d", constants.RedisSuggestionRunPrefix, userID, requestKey, fingerprint, in.request.MaxCandidates)
	if resp := s.cached(ctx, cacheKey); resp != nil {
		span.SetAttributes(attribute.Bool("suggestion.reused", true))
		return resp, nil
	}

	existing, err := s.repo.FindLatestRun(ctx, userID, requestKey, fingerprint, in.request.MaxCandidates)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to look up suggestion runs", err)
	}
	if existing != nil {
		resp, err := dto.ToSuggestResponse(existing, true)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "Stored suggestion run is corrupt", err)
		}
		s.remember(ctx, cacheKey, resp)
		span.SetAttributes(attribute.Bool("suggestion.reused", true))
		logger.Info("MeetingService:Suggest:Reused", "run_id", existing.ID, "request_key", requestKey)
		return resp, nil
	}

	// attendee zones sit within a day of the request zone
	from := engine.LocalMidnight(in.request.RangeStart.AddDays(-1), time.UTC)
	to := engine.LocalMidnight(in.request.RangeEnd.AddDays(2), time.UTC)
	attendees, err := s.loader.Load(ctx, in.attendeeIDs, from, to)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to load attendee availability", err)
	}
	in.request.Attendees = attendees

	candidates, appErr := s.rank(ctx, in.request)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Message)
		return nil, appErr
	}

	requestJSON, err := json.Marshal(in.normalized)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to encode request", err)
	}
	candidatesJSON, err := json.Marshal(candidates)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to encode candidates", err)
	}

	run, err := s.repo.CreateRun(ctx, &entity.SuggestionRun{
		ID:              utils.GenerateID(),
		RequestKey:      requestKey,
		DataFingerprint: fingerprint,
		MaxCandidates:   in.request.MaxCandidates,
		TimeZone:        in.request.TimeZone,
		AttendeeIDs:     in.normalized.AttendeeIDs,
		Request:         types.JSONText(requestJSON),
		Candidates:      types.JSONText(candidatesJSON),
		CreatedBy:       userID,
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to save suggestion run", err)
	}

	resp := &dto.SuggestResponse{
		RunID:           run.ID,
		RequestKey:      requestKey,
		DataFingerprint: fingerprint,
		CreatedAt:       run.CreatedAt,
		Candidates:      candidates,
	}
	s.remember(ctx, cacheKey, resp)

	span.SetAttributes(
		attribute.Bool("suggestion.reused", false),
		attribute.Int("suggestion.candidates", len(candidates)),
	)
	logger.Info("MeetingService:Suggest:Created", "run_id", run.ID, "request_key", requestKey, "candidates", len(candidates))
	return resp, nil
}

func (s *MeetingService) rank(ctx context.Context, req engine.Request) ([]engine.Candidate, *errors.AppError) {
	_, span := tracing.Start(ctx, "engine.Suggest")
	defer span.End()

	candidates, err := engine.Suggest(req)
	if err != nil {
		if isEngineInputError(err) {
			return nil, errors.NewAppError(errors.ErrInvalidInput, err.Error(), err)
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to rank candidates", err)
	}
	return candidates, nil
}

func isEngineInputError(err error) bool {
	for _, target := range []error{
		engine.ErrNoAttendees,
		engine.ErrInvalidDayBounds,
		engine.ErrInvalidTimeZone,
		engine.ErrInvalidDuration,
		engine.ErrInvalidStep,
		engine.ErrInvalidRange,
	} {
		if stdErrors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *MeetingService) GetRun(ctx context.Context, userID uuid.UUID, runID string) (*dto.SuggestResponse, *errors.AppError) {
	run, appErr := s.loadRun(ctx, userID, runID)
	if appErr != nil {
		return nil, appErr
	}
	resp, err := dto.ToSuggestResponse(run, true)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Stored suggestion run is corrupt", err)
	}
	return resp, nil
}

func (s *MeetingService) loadRun(ctx context.Context, userID uuid.UUID, runID string) (*entity.SuggestionRun, *errors.AppError) {
	if strings.TrimSpace(runID) == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "run_id is required", nil)
	}
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get suggestion run", err)
	}
	if run == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Suggestion run not found", nil)
	}
	if !run.CanView(userID) {
		return nil, errors.NewAppError(errors.ErrForbidden, "Not allowed to access this suggestion run", nil)
	}
	return run, nil
}

// ===================== Confirmation =====================

// Confirm books one of a run's candidates. The attendees' data must not have changed since
// the run was computed, and no attendee counted as available may be busy or already booked
// during the slot.
func (s *MeetingService) Confirm(ctx context.Context, userID uuid.UUID, req *dto.ConfirmRequest) (*dto.MeetingResponse, *errors.AppError) {
	ctx, span := tracing.Start(ctx, "MeetingService.Confirm")
	defer span.End()

	if !req.EndAt.After(req.StartAt) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "end_at must be after start_at", nil)
	}
	run, appErr := s.loadRun(ctx, userID, req.RunID)
	if appErr != nil {
		return nil, appErr
	}
	stored, err := dto.ToSuggestResponse(run, true)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Stored suggestion run is corrupt", err)
	}

	var chosen *engine.Candidate
	for i := range stored.Candidates {
		c := &stored.Candidates[i]
		if c.StartAt.Equal(req.StartAt) && c.EndAt.Equal(req.EndAt) {
			chosen = c
			break
		}
	}
	if chosen == nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Slot is not one of the run's candidates", nil)
	}

	attendeeIDs, err := parseIDs(run.AttendeeIDs)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Stored suggestion run is corrupt", err)
	}
	fingerprint, appErr := s.dataFingerprint(ctx, attendeeIDs)
	if appErr != nil {
		return nil, appErr
	}
	if fingerprint != run.DataFingerprint {
		span.SetStatus(codes.Error, "stale")
		return nil, errors.NewAppError(errors.ErrStaleData, "Availability changed since suggestions were generated, request new suggestions", nil)
	}

	if appErr := s.checkConflicts(ctx, chosen); appErr != nil {
		span.SetStatus(codes.Error, "conflict")
		return nil, appErr
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		var original dto.SuggestRequest
		if err := run.Request.Unmarshal(&original); err == nil {
			title = original.Title
		}
	}
	if title == "" {
		title = defaultTitle
	}
	if len(title) > maxTitleLength {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "title is too long", nil)
	}

	meeting, err := s.repo.CreateMeeting(ctx, &entity.Meeting{
		RunID:       run.ID,
		Title:       title,
		StartAt:     chosen.StartAt,
		EndAt:       chosen.EndAt,
		Status:      entity.MeetingStatusScheduled,
		TimeZone:    run.TimeZone,
		AttendeeIDs: chosen.AvailableUserIDs,
		CreatedBy:   userID,
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to create meeting", err)
	}

	logger.Info("MeetingService:Confirm:Scheduled", "meeting_id", meeting.ID, "run_id", run.ID)
	resp := dto.ToMeetingResponse(meeting)
	return &resp, nil
}

// checkConflicts re-reads the available attendees' busy time around the slot.
func (s *MeetingService) checkConflicts(ctx context.Context, c *engine.Candidate) *errors.AppError {
	available, err := parseIDs(c.AvailableUserIDs)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Stored suggestion run is corrupt", err)
	}
	if len(available) == 0 {
		return nil
	}

	snapshots, err := s.loader.Load(ctx, available, c.StartAt.Add(-24*time.Hour), c.EndAt.Add(24*time.Hour))
	if err != nil {
		return errors.NewAppError(errors.ErrGetFailed, "Failed to load attendee availability", err)
	}
	for _, a := range snapshots {
		for _, o := range a.Overrides {
			if o.Kind == engine.OverrideUnavailable && engine.IntervalsOverlap(o.StartAt, o.EndAt, c.StartAt, c.EndAt) {
				return errors.NewAppError(errors.ErrConflict, fmt.Sprintf("Attendee %s is busy during this slot", a.UserID), nil)
			}
		}
	}

	booked, err := s.repo.ListOverlappingMeetings(ctx, available, c.StartAt, c.EndAt)
	if err != nil {
		return errors.NewAppError(errors.ErrGetFailed, "Failed to check existing meetings", err)
	}
	if len(booked) > 0 {
		return errors.NewAppError(errors.ErrConflict, fmt.Sprintf("Slot overlaps meeting %s", booked[0].ID), nil)
	}
	return nil
}

// ===================== Meetings =====================

func (s *MeetingService) ListMeetings(ctx context.Context, userID uuid.UUID) ([]dto.MeetingResponse, *errors.AppError) {
	meetings, err := s.repo.ListMeetingsForUser(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to list meetings", err)
	}
	return dto.ToMeetingResponses(meetings), nil
}

func (s *MeetingService) GetMeeting(ctx context.Context, userID, id uuid.UUID) (*dto.MeetingResponse, *errors.AppError) {
	meeting, err := s.repo.GetMeetingByID(ctx, id)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get meeting", err)
	}
	if meeting == nil || !meeting.HasAttendee(userID) {
		return nil, errors.NewAppError(errors.ErrNotFound, "Meeting not found", nil)
	}
	resp := dto.ToMeetingResponse(meeting)
	return &resp, nil
}

// ===================== Helpers =====================

func (s *MeetingService) validate(req *dto.SuggestRequest) (*suggestInput, *errors.AppError) {
	invalid := func(msg string) (*suggestInput, *errors.AppError) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, msg, nil)
	}

	title := strings.TrimSpace(req.Title)
	if len(title) > maxTitleLength {
		return invalid("title is too long")
	}

	seen := make(map[uuid.UUID]bool, len(req.AttendeeIDs))
	ids := make([]uuid.UUID, 0, len(req.AttendeeIDs))
	for _, raw := range req.AttendeeIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return invalid(fmt.Sprintf("invalid attendee id %q", raw))
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return invalid("at least one attendee is required")
	}
	if len(ids) > s.limits.MaxAttendees {
		return invalid(fmt.Sprintf("at most %d attendees are allowed", s.limits.MaxAttendees))
	}

	if req.TimeZone == "" {
		return invalid("time_zone is required")
	}
	if _, err := time.LoadLocation(req.TimeZone); err != nil {
		return invalid("invalid time_zone")
	}

	start, err := engine.ParseDate(req.RangeStart)
	if err != nil {
		return invalid("invalid range_start, expected YYYY-MM-DD")
	}
	end, err := engine.ParseDate(req.RangeEnd)
	if err != nil {
		return invalid("invalid range_end, expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return invalid("range_end must not be before range_start")
	}
	if start.DaysUntil(end)+1 > s.limits.MaxRangeDays {
		return invalid(fmt.Sprintf("range must not exceed %d days", s.limits.MaxRangeDays))
	}

	if req.DurationMinutes < minDurationMinutes || req.DurationMinutes > engine.MinutesPerDay {
		return invalid(fmt.Sprintf("duration_minutes must be between %d and %d", minDurationMinutes, engine.MinutesPerDay))
	}
	step := req.StepMinutes
	if step == 0 {
		step = defaultStepMinutes
	}
	if step < s.limits.MinStepMinutes {
		return invalid(fmt.Sprintf("step_minutes must be at least %d", s.limits.MinStepMinutes))
	}

	dayStart, dayEnd := req.DayStartMinute, req.DayEndMinute
	if dayStart == 0 && dayEnd == 0 {
		dayEnd = engine.MinutesPerDay
	}
	if dayStart < 0 || dayEnd > engine.MinutesPerDay || dayStart >= dayEnd {
		return invalid("day_start_minute and day_end_minute must satisfy 0 <= start < end <= 1440")
	}

	maxCandidates := req.MaxCandidates
	if maxCandidates == 0 {
		maxCandidates = s.limits.DefaultMaxCandidates
	}
	if maxCandidates < 1 || maxCandidates > s.limits.MaxCandidatesLimit {
		return invalid(fmt.Sprintf("max_candidates must be between 1 and %d", s.limits.MaxCandidatesLimit))
	}

	idStrings := make([]string, len(ids))
	attendees := make([]engine.AttendeeAvailability, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
		attendees[i] = engine.AttendeeAvailability{UserID: idStrings[i]}
	}

	return &suggestInput{
		normalized: dto.SuggestRequest{
			Title:           title,
			TimeZone:        req.TimeZone,
			RangeStart:      start.String(),
			RangeEnd:        end.String(),
			DurationMinutes: req.DurationMinutes,
			StepMinutes:     step,
			DayStartMinute:  dayStart,
			DayEndMinute:    dayEnd,
			AttendeeIDs:     idStrings,
			MaxCandidates:   maxCandidates,
		},
		request: engine.Request{
			TimeZone:        req.TimeZone,
			RangeStart:      start,
			RangeEnd:        end,
			DurationMinutes: req.DurationMinutes,
			StepMinutes:     step,
			DayStartMinute:  dayStart,
			DayEndMinute:    dayEnd,
			Attendees:       attendees,
			MaxCandidates:   maxCandidates,
		},
		attendeeIDs: ids,
	}, nil
}

func (s *MeetingService) dataFingerprint(ctx context.Context, ids []uuid.UUID) (string, *errors.AppError) {
	activity, err := s.repo.GetActivity(ctx, ids)
	if err != nil {
		return "", errors.NewAppError(errors.ErrGetFailed, "Failed to read availability activity", err)
	}
	return engine.ComputeDataFingerprint(activity), nil
}

func (s *MeetingService) cached(ctx context.Context, key string) *dto.SuggestResponse {
	if s.cache == nil {
		return nil
	}
	var resp dto.SuggestResponse
	if err := cache.GetJSON(ctx, s.cache, key, &resp); err != nil {
		if !stdErrors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("MeetingService:Cache:Get", "key", key, "error", err)
		}
		return nil
	}
	resp.Reused = true
	return &resp
}

func (s *MeetingService) remember(ctx context.Context, key string, resp *dto.SuggestResponse) {
	if s.cache == nil || s.limits.CacheTTL <= 0 {
		return
	}
	stored := *resp
	stored.Reused = false
	if err := cache.SetJSON(ctx, s.cache, key, stored, s.limits.CacheTTL); err != nil {
		logger.Warn("MeetingService:Cache:Set", "key", key, "error", err)
	}
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
