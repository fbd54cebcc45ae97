package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fairmeet/core/database"
	"fairmeet/core/logger"
	availabilityEntity "fairmeet/modules/availability/entity"
	calendarEntity "fairmeet/modules/calendar/entity"
	"fairmeet/modules/meeting/engine"
	"fairmeet/modules/meeting/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MeetingRepository reads attendee snapshots and stores suggestion runs and meetings
type MeetingRepository struct {
	DB database.Database
}

func NewMeetingRepository(db database.Database) *MeetingRepository {
	return &MeetingRepository{DB: db}
}

// SnapshotRepository is the read side the snapshot loader needs.
type SnapshotRepository interface {
	ListProfiles(ctx context.Context, userIDs []uuid.UUID) ([]availabilityEntity.AvailabilityProfile, error)
	ListWindows(ctx context.Context, userIDs []uuid.UUID) ([]availabilityEntity.WeeklyWindow, error)
	ListOverrides(ctx context.Context, userIDs []uuid.UUID, from, to time.Time) ([]availabilityEntity.AvailabilityOverride, error)
	ListBusyBlocks(ctx context.Context, userIDs []uuid.UUID, from, to time.Time) ([]calendarEntity.BusyBlock, error)
	ListConnectedUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error)
}

// MeetingRepositoryInterface defines the repository contract
type MeetingRepositoryInterface interface {
	SnapshotRepository

	// Activity
	GetActivity(ctx context.Context, userIDs []uuid.UUID) ([]engine.AttendeeActivity, error)

	// Suggestion runs
	CreateRun(ctx context.Context, run *entity.SuggestionRun) (*entity.SuggestionRun, error)
	GetRun(ctx context.Context, id string) (*entity.SuggestionRun, error)
	FindLatestRun(ctx context.Context, createdBy uuid.UUID, requestKey, dataFingerprint string, maxCandidates int) (*entity.SuggestionRun, error)

	// Meetings
	CreateMeeting(ctx context.Context, m *entity.Meeting) (*entity.Meeting, error)
	GetMeetingByID(ctx context.Context, id uuid.UUID) (*entity.Meeting, error)
	ListMeetingsForUser(ctx context.Context, userID uuid.UUID) ([]entity.Meeting, error)
	ListOverlappingMeetings(ctx context.Context, userIDs []uuid.UUID, from, to time.Time) ([]entity.Meeting, error)
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// ===================== Snapshots =====================

func (r *MeetingRepository) ListProfiles(ctx context.Context, userIDs []uuid.UUID) ([]availabilityEntity.AvailabilityProfile, error) {
	query := `
		SELECT user_id, time_zone, updated_at
		FROM availability_profiles
		WHERE user_id = ANY($1::uuid[])
	`

	profiles := []availabilityEntity.AvailabilityProfile{}
	if err := r.DB.SelectContext(ctx, &profiles, query, pq.Array(idStrings(userIDs))); err != nil {
		logger.Error("MeetingRepository:ListProfiles", err)
		return nil, err
	}
	return profiles, nil
}

func (r *MeetingRepository) ListWindows(ctx context.Context, userIDs []uuid.UUID) ([]availabilityEntity.WeeklyWindow, error) {
	query := `
		SELECT id, user_id, day_of_week, start_minute, end_minute, updated_at
		FROM weekly_windows
		WHERE user_id = ANY($1::uuid[])
		ORDER BY user_id, day_of_week, start_minute
	`

	windows := []availabilityEntity.WeeklyWindow{}
	if err := r.DB.SelectContext(ctx, &windows, query, pq.Array(idStrings(userIDs))); err != nil {
		logger.Error("MeetingRepository:ListWindows", err)
		return nil, err
	}
	return windows, nil
}

func (r *MeetingRepository) ListOverrides(ctx context.Context, userIDs []uuid.UUID, from, to time.Time) ([]availabilityEntity.AvailabilityOverride, error) {
	query := `
		SELECT id, user_id, start_at, end_at, kind, note, updated_at, deleted_at
		FROM availability_overrides
		WHERE user_id = ANY($1::uuid[]) AND deleted_at IS NULL
		  AND start_at < $3 AND end_at > $2
		ORDER BY user_id, start_at
	`

	overrides := []availabilityEntity.AvailabilityOverride{}
	if err := r.DB.SelectContext(ctx, &overrides, query, pq.Array(idStrings(userIDs)), from.UTC(), to.UTC()); err != nil {
		logger.Error("MeetingRepository:ListOverrides", err)
		return nil, err
	}
	return overrides, nil
}

func (r *MeetingRepository) ListBusyBlocks(ctx context.Context, userIDs []uuid.UUID, from, to time.Time) ([]calendarEntity.BusyBlock, error) {
	query := `
		SELECT id, user_id, start_utc, end_utc, source, created_at
		FROM busy_blocks
		WHERE user_id = ANY($1::uuid[]) AND start_utc < $3 AND end_utc > $2
		ORDER BY user_id, start_utc
	`

	blocks := []calendarEntity.BusyBlock{}
	if err := r.DB.SelectContext(ctx, &blocks, query, pq.Array(idStrings(userIDs)), from.UTC(), to.UTC()); err != nil {
		logger.Error("MeetingRepository:ListBusyBlocks", err)
		return nil, err
	}
	return blocks, nil
}

func (r *MeetingRepository) ListConnectedUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT user_id
		FROM calendar_connections
		WHERE user_id = ANY($1::uuid[]) AND is_active = TRUE
	`

	ids := []uuid.UUID{}
	if err := r.DB.SelectContext(ctx, &ids, query, pq.Array(idStrings(userIDs))); err != nil {
		logger.Error("MeetingRepository:ListConnectedUserIDs", err)
		return nil, err
	}
	return ids, nil
}

// ===================== Activity =====================

type activityRow struct {
	UserID            string       `db:"user_id"`
	TemplateUpdatedAt sql.NullTime `db:"template_updated_at"`
	OverrideUpdatedAt sql.NullTime `db:"override_updated_at"`
	BusyCreatedAt     sql.NullTime `db:"busy_created_at"`
	BusyChangedAt     sql.NullTime `db:"busy_changed_at"`
}

// GetActivity returns one row per requested user. Deleted overrides still count: the
// soft delete bumps updated_at. Deleted busy blocks count through busy_block_changes.
func (r *MeetingRepository) GetActivity(ctx context.Context, userIDs []uuid.UUID) ([]engine.AttendeeActivity, error) {
	query := `
		SELECT u.user_id::text AS user_id,
		       GREATEST(
		           (SELECT p.updated_at FROM availability_profiles p WHERE p.user_id = u.user_id),
		           (SELECT MAX(w.updated_at) FROM weekly_windows w WHERE w.user_id = u.user_id)
		       ) AS template_updated_at,
		       (SELECT MAX(o.updated_at) FROM availability_overrides o WHERE o.user_id = u.user_id) AS override_updated_at,
		       (SELECT MAX(b.created_at) FROM busy_blocks b WHERE b.user_id = u.user_id) AS busy_created_at,
		       (SELECT c.changed_at FROM busy_block_changes c WHERE c.user_id = u.user_id) AS busy_changed_at
		FROM unnest($1::uuid[]) AS u(user_id)
	`

	rows := []activityRow{}
	if err := r.DB.SelectContext(ctx, &rows, query, pq.Array(idStrings(userIDs))); err != nil {
		logger.Error("MeetingRepository:GetActivity", err)
		return nil, err
	}

	activity := make([]engine.AttendeeActivity, 0, len(rows))
	for _, row := range rows {
		activity = append(activity, engine.AttendeeActivity{
			UserID:            row.UserID,
			TemplateUpdatedAt: nullTime(row.TemplateUpdatedAt),
			OverrideUpdatedAt: nullTime(row.OverrideUpdatedAt),
			BusyCreatedAt:     nullTime(row.BusyCreatedAt),
			BusyChangedAt:     nullTime(row.BusyChangedAt),
		})
	}
	return activity, nil
}

func nullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

// ===================== Suggestion runs =====================

const runColumns = `id, request_key, data_fingerprint, max_candidates, time_zone, attendee_ids,
	request, candidates, created_by, created_at`

func (r *MeetingRepository) CreateRun(ctx context.Context, run *entity.SuggestionRun) (*entity.SuggestionRun, error) {
	query := `
		INSERT INTO suggestion_runs (id, request_key, data_fingerprint, max_candidates, time_zone, attendee_ids, request, candidates, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::uuid[], $7, $8, $9, NOW())
		RETURNING ` + runColumns

	var created entity.SuggestionRun
	err := r.DB.GetContext(ctx, &created, query,
		run.ID, run.RequestKey, run.DataFingerprint, run.MaxCandidates, run.TimeZone,
		pq.Array([]string(run.AttendeeIDs)), run.Request, run.Candidates, run.CreatedBy)
	if err != nil {
		logger.Error("MeetingRepository:CreateRun", err)
		return nil, err
	}
	return &created, nil
}

func (r *MeetingRepository) GetRun(ctx context.Context, id string) (*entity.SuggestionRun, error) {
	query := `SELECT ` + runColumns + ` FROM suggestion_runs WHERE id = $1`

	var run entity.SuggestionRun
	if err := r.DB.GetContext(ctx, &run, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("MeetingRepository:GetRun", err)
		return nil, err
	}
	return &run, nil
}

func (r *MeetingRepository) FindLatestRun(ctx context.Context, createdBy uuid.UUID, requestKey, dataFingerprint string, maxCandidates int) (*entity.SuggestionRun, error) {
	query := `SELECT ` + runColumns + ` FROM suggestion_runs
		WHERE created_by = $1 AND request_key = $2 AND data_fingerprint = $3 AND max_candidates = $4
		ORDER BY created_at DESC
		LIMIT 1`

	var run entity.SuggestionRun
	if err := r.DB.GetContext(ctx, &run, query, createdBy, requestKey, dataFingerprint, maxCandidates); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("MeetingRepository:FindLatestRun", err)
		return nil, err
	}
	return &run, nil
}

// ===================== Meetings =====================

const meetingColumns = `id, run_id, title, start_at, end_at, status, time_zone, attendee_ids, created_by, created_at`

func (r *MeetingRepository) CreateMeeting(ctx context.Context, m *entity.Meeting) (*entity.Meeting, error) {
	query := `
		INSERT INTO meetings (run_id, title, start_at, end_at, status, time_zone, attendee_ids, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::uuid[], $8, NOW())
		RETURNING ` + meetingColumns

	var created entity.Meeting
	err := r.DB.GetContext(ctx, &created, query,
		m.RunID, m.Title, m.StartAt.UTC(), m.EndAt.UTC(), m.Status, m.TimeZone,
		pq.Array([]string(m.AttendeeIDs)), m.CreatedBy)
	if err != nil {
		logger.Error("MeetingRepository:CreateMeeting", err)
		return nil, err
	}
	return &created, nil
}

func (r *MeetingRepository) GetMeetingByID(ctx context.Context, id uuid.UUID) (*entity.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`

	var m entity.Meeting
	if err := r.DB.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("MeetingRepository:GetMeetingByID", err)
		return nil, err
	}
	return &m, nil
}

func (r *MeetingRepository) ListMeetingsForUser(ctx context.Context, userID uuid.UUID) ([]entity.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings
		WHERE created_by = $1 OR $1 = ANY(attendee_ids)
		ORDER BY start_at`

	meetings := []entity.Meeting{}
	if err := r.DB.SelectContext(ctx, &meetings, query, userID); err != nil {
		logger.Error("MeetingRepository:ListMeetingsForUser", err)
		return nil, err
	}
	return meetings, nil
}

// ListOverlappingMeetings returns scheduled meetings of any of userIDs that overlap [from, to).
func (r *MeetingRepository) ListOverlappingMeetings(ctx context.Context, userIDs []uuid.UUID, from, to time.Time) ([]entity.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings
		WHERE status = 'scheduled'
		  AND start_at < $3 AND end_at > $2
		  AND attendee_ids && $1::uuid[]
		ORDER BY start_at`

	meetings := []entity.Meeting{}
	if err := r.DB.SelectContext(ctx, &meetings, query, pq.Array(idStrings(userIDs)), from.UTC(), to.UTC()); err != nil {
		logger.Error("MeetingRepository:ListOverlappingMeetings", err)
		return nil, err
	}
	return meetings, nil
}
