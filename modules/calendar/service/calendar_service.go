package service

import (
	"context"
	stdErrors "errors"
	"sort"
	"strings"
	"time"

	"fairmeet/core/cache"
	"fairmeet/core/constants"
	"fairmeet/core/errors"
	"fairmeet/core/logger"
	"fairmeet/core/queue"
	"fairmeet/core/utils"
	"fairmeet/modules/calendar/dto"
	"fairmeet/modules/calendar/entity"
	"fairmeet/modules/calendar/repository"
	"fairmeet/modules/meeting/engine"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/oauth2"
)

// maxICSRangeDays bounds how far an ICS import expands recurring events.
const maxICSRangeDays = 366

type CalendarService interface {
	// Connection management
	GetGoogleAuthURL(ctx context.Context, userID uuid.UUID) (*dto.AuthURLResponse, *errors.AppError)
	HandleGoogleCallback(ctx context.Context, state, code string) (*dto.CalendarConnectionResponse, *errors.AppError)
	GetConnections(ctx context.Context, userID uuid.UUID) ([]dto.CalendarConnectionResponse, *errors.AppError)
	DisconnectCalendar(ctx context.Context, userID uuid.UUID, provider string) *errors.AppError

	// Busy time
	RequestSync(ctx context.Context, userID uuid.UUID, req *dto.SyncRequest) (*dto.SyncResponse, *errors.AppError)
	SyncGoogleBusy(ctx context.Context, userID uuid.UUID, days int) (int, error)
	ImportICS(ctx context.Context, userID uuid.UUID, req *dto.ImportICSRequest) (*dto.ImportICSResponse, *errors.AppError)
	ListBusy(ctx context.Context, userID uuid.UUID, from, to string) ([]dto.BusyBlockResponse, *errors.AppError)
}

type calendarService struct {
	repo     repository.CalendarRepository
	google   GoogleCalendar
	cache    cache.Cache
	enqueuer queue.Enqueuer
	now      func() time.Time
}

func NewCalendarService(
	repo repository.CalendarRepository,
	google GoogleCalendar,
	cache cache.Cache,
	enqueuer queue.Enqueuer,
) CalendarService {
	return &calendarService{
		repo:     repo,
		google:   google,
		cache:    cache,
		enqueuer: enqueuer,
		now:      time.Now,
	}
}

// ==================== Connections ====================

func (s *calendarService) GetGoogleAuthURL(ctx context.Context, userID uuid.UUID) (*dto.AuthURLResponse, *errors.AppError) {
	state := utils.GenerateRandomString(32)
	if err := s.cache.Set(ctx, constants.RedisOAuthStatePrefix+state, userID.String(), constants.OAuthStateTTL); err != nil {
		logger.Error("CalendarService:GetGoogleAuthURL:SaveState", "user_id", userID, "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to start Google authorization", err)
	}
	return &dto.AuthURLResponse{URL: s.google.AuthCodeURL(state), State: state}, nil
}

func (s *calendarService) HandleGoogleCallback(ctx context.Context, state, code string) (*dto.CalendarConnectionResponse, *errors.AppError) {
	if state == "" || code == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "state and code are required", nil)
	}

	key := constants.RedisOAuthStatePrefix + state
	rawUserID, err := s.cache.Get(ctx, key)
	if err != nil {
		if stdErrors.Is(err, cache.ErrCacheMiss) {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid or expired state", nil)
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to verify state", err)
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		logger.Warn("CalendarService:HandleGoogleCallback:DeleteState", "error", err)
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid state", err)
	}

	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		logger.Error("CalendarService:HandleGoogleCallback:Exchange", "user_id", userID, "error", err)
		return nil, errors.NewAppError(errors.ErrUnauthorized, "Failed to exchange authorization code", err)
	}
	email, token, err := s.google.PrimaryEmail(ctx, token)
	if err != nil {
		logger.Error("CalendarService:HandleGoogleCallback:PrimaryEmail", "user_id", userID, "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to read Google calendar", err)
	}

	conn, err := s.repo.UpsertConnection(ctx, &entity.CalendarConnection{
		UserID:         userID,
		Provider:       constants.ProviderGoogle,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: token.Expiry,
		CalendarEmail:  email,
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to save calendar connection", err)
	}

	logger.Info("CalendarService:HandleGoogleCallback:Connected", "user_id", userID, "email", email)
	resp := dto.ToConnectionResponse(conn)
	return &resp, nil
}

func (s *calendarService) GetConnections(ctx context.Context, userID uuid.UUID) ([]dto.CalendarConnectionResponse, *errors.AppError) {
	conns, err := s.repo.GetConnectionsByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get connections", err)
	}

	result := make([]dto.CalendarConnectionResponse, 0, len(conns))
	for i := range conns {
		result = append(result, dto.ToConnectionResponse(&conns[i]))
	}
	return result, nil
}

// DisconnectCalendar deactivates the connection and drops its upcoming busy blocks.
func (s *calendarService) DisconnectCalendar(ctx context.Context, userID uuid.UUID, provider string) *errors.AppError {
	if provider != constants.ProviderGoogle {
		return errors.NewAppError(errors.ErrInvalidInput, "Invalid provider", nil)
	}

	ok, err := s.repo.DeactivateConnection(ctx, userID, provider)
	if err != nil {
		return errors.NewAppError(errors.ErrUpdateFailed, "Failed to disconnect", err)
	}
	if !ok {
		return errors.NewAppError(errors.ErrNotFound, "Calendar connection not found", nil)
	}

	now := s.now().UTC()
	if err := s.repo.ReplaceBusyBlocks(ctx, userID, constants.BusySourceGoogle, now, now.AddDate(0, 0, constants.MaxSyncDays), nil); err != nil {
		return errors.NewAppError(errors.ErrDeleteFailed, "Failed to clear synced busy time", err)
	}
	return nil
}

// ==================== Busy time ====================

func (s *calendarService) RequestSync(ctx context.Context, userID uuid.UUID, req *dto.SyncRequest) (*dto.SyncResponse, *errors.AppError) {
	days := req.Days
	if days == 0 {
		days = constants.DefaultSyncDays
	}
	if days < 1 || days > constants.MaxSyncDays {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "days must be between 1 and 60", nil)
	}

	conn, err := s.repo.GetConnection(ctx, userID, constants.ProviderGoogle)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get calendar connection", err)
	}
	if conn == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Google calendar is not connected", nil)
	}

	taskID, err := s.enqueuer.Enqueue(ctx, constants.TaskCalendarSyncBusy, dto.SyncBusyPayload{UserID: userID.String(), Days: days})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to schedule calendar sync", err)
	}
	return &dto.SyncResponse{TaskID: taskID, Days: days}, nil
}

// SyncGoogleBusy pulls free/busy for [now, now+days) and stores it as the user's google
// busy blocks. Users without an active connection are skipped. It returns the number of
// blocks stored.
func (s *calendarService) SyncGoogleBusy(ctx context.Context, userID uuid.UUID, days int) (int, error) {
	conn, err := s.repo.GetConnection(ctx, userID, constants.ProviderGoogle)
	if err != nil {
		return 0, err
	}
	if conn == nil {
		logger.Info("CalendarService:SyncGoogleBusy:NotConnected", "user_id", userID)
		return 0, nil
	}

	from := s.now().UTC().Truncate(time.Minute)
	to := from.AddDate(0, 0, days)

	token := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		Expiry:       conn.TokenExpiresAt,
		TokenType:    "Bearer",
	}
	busy, current, err := s.google.FreeBusy(ctx, token, from, to)
	if err != nil {
		logger.Error("CalendarService:SyncGoogleBusy:FreeBusy", "user_id", userID, "error", err)
		return 0, err
	}
	if current != nil && current.AccessToken != conn.AccessToken {
		refresh := current.RefreshToken
		if refresh == "" {
			refresh = conn.RefreshToken
		}
		if err := s.repo.UpdateToken(ctx, conn.ID, current.AccessToken, refresh, current.Expiry); err != nil {
			logger.Warn("CalendarService:SyncGoogleBusy:UpdateToken", "user_id", userID, "error", err)
		}
	}

	if err := s.replaceIfChanged(ctx, userID, constants.BusySourceGoogle, from, to, busy); err != nil {
		return 0, err
	}
	logger.Info("CalendarService:SyncGoogleBusy:Done", "user_id", userID, "blocks", len(busy), "days", days)
	return len(busy), nil
}

func (s *calendarService) ImportICS(ctx context.Context, userID uuid.UUID, req *dto.ImportICSRequest) (*dto.ImportICSResponse, *errors.AppError) {
	name := slug.Make(strings.TrimSpace(req.Name))
	if name == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "name is required", nil)
	}

	loc := time.UTC
	if req.TimeZone != "" {
		l, err := time.LoadLocation(req.TimeZone)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid time zone", err)
		}
		loc = l
	}
	fromDate, err := engine.ParseDate(req.From)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid from date", err)
	}
	toDate, err := engine.ParseDate(req.To)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid to date", err)
	}
	if toDate.Before(fromDate) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "to must not be before from", nil)
	}
	if fromDate.DaysUntil(toDate) >= maxICSRangeDays {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Import range is too long", nil)
	}

	from := engine.LocalMidnight(fromDate, loc)
	to := engine.LocalMidnight(toDate.AddDays(1), loc)

	busy, err := ParseICSBusy(req.Content, from, to, loc)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid ICS content", err)
	}

	source := constants.BusySourceICSPrefix + name
	if err := s.replaceIfChanged(ctx, userID, source, from, to, busy); err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to store busy time", err)
	}

	logger.Info("CalendarService:ImportICS:Done", "user_id", userID, "source", source, "blocks", len(busy))
	return &dto.ImportICSResponse{Source: source, Imported: len(busy)}, nil
}

func (s *calendarService) ListBusy(ctx context.Context, userID uuid.UUID, from, to string) ([]dto.BusyBlockResponse, *errors.AppError) {
	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid from, expected RFC3339", err)
	}
	end, err := time.Parse(time.RFC3339, to)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid to, expected RFC3339", err)
	}
	if !end.After(start) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "to must be after from", nil)
	}

	blocks, err := s.repo.ListBusyBlocks(ctx, userID, start, end)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to list busy time", err)
	}
	return dto.ToBusyBlockResponses(blocks), nil
}

// replaceIfChanged rewrites the source's blocks in [from, to) unless the stored set already
// matches, so that an unchanged calendar does not move the user's data fingerprint.
func (s *calendarService) replaceIfChanged(ctx context.Context, userID uuid.UUID, source string, from, to time.Time, busy []entity.TimeRange) error {
	sort.Slice(busy, func(i, j int) bool {
		if !busy[i].Start.Equal(busy[j].Start) {
			return busy[i].Start.Before(busy[j].Start)
		}
		return busy[i].End.Before(busy[j].End)
	})

	existing, err := s.repo.ListBusyBlocksBySource(ctx, userID, source, from, to)
	if err != nil {
		return err
	}
	if sameBlocks(existing, busy) {
		logger.Debug("CalendarService:ReplaceBusy:Unchanged", "user_id", userID, "source", source)
		return nil
	}
	return s.repo.ReplaceBusyBlocks(ctx, userID, source, from, to, busy)
}

func sameBlocks(existing []entity.BusyBlock, busy []entity.TimeRange) bool {
	if len(existing) != len(busy) {
		return false
	}
	for i := range existing {
		if !existing[i].StartUTC.Equal(busy[i].Start) || !existing[i].EndUTC.Equal(busy[i].End) {
			return false
		}
	}
	return true
}
