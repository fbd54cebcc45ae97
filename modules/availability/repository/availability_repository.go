package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fairmeet/core/database"
	"fairmeet/core/logger"
	"fairmeet/modules/availability/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AvailabilityRepository stores profiles, weekly templates and overrides.
type AvailabilityRepository struct {
	DB database.Database
}

func NewAvailabilityRepository(db database.Database) *AvailabilityRepository {
	return &AvailabilityRepository{DB: db}
}

type AvailabilityRepositoryInterface interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*entity.AvailabilityProfile, error)
	UpsertProfile(ctx context.Context, userID uuid.UUID, timeZone string) (*entity.AvailabilityProfile, error)

	ListWindows(ctx context.Context, userID uuid.UUID) ([]entity.WeeklyWindow, error)
	ReplaceWindows(ctx context.Context, userID uuid.UUID, windows []entity.WeeklyWindow) error

	ListOverrides(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]entity.AvailabilityOverride, error)
	CreateOverride(ctx context.Context, o *entity.AvailabilityOverride) (*entity.AvailabilityOverride, error)
	SoftDeleteOverride(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

// ===================== Profile =====================

func (r *AvailabilityRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*entity.AvailabilityProfile, error) {
	query := `SELECT user_id, time_zone, updated_at FROM availability_profiles WHERE user_id = $1`

	var profile entity.AvailabilityProfile
	err := r.DB.GetContext(ctx, &profile, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("AvailabilityRepository:GetProfile", err)
		return nil, err
	}
	return &profile, nil
}

func (r *AvailabilityRepository) UpsertProfile(ctx context.Context, userID uuid.UUID, timeZone string) (*entity.AvailabilityProfile, error) {
	query := `
		INSERT INTO availability_profiles (user_id, time_zone, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET time_zone = EXCLUDED.time_zone, updated_at = NOW()
		RETURNING user_id, time_zone, updated_at
	`

	var profile entity.AvailabilityProfile
	if err := r.DB.GetContext(ctx, &profile, query, userID, timeZone); err != nil {
		logger.Error("AvailabilityRepository:UpsertProfile", err)
		return nil, err
	}
	return &profile, nil
}

// ===================== Weekly windows =====================

func (r *AvailabilityRepository) ListWindows(ctx context.Context, userID uuid.UUID) ([]entity.WeeklyWindow, error) {
	query := `
		SELECT id, user_id, day_of_week, start_minute, end_minute, updated_at
		FROM weekly_windows
		WHERE user_id = $1
		ORDER BY day_of_week, start_minute, end_minute
	`

	windows := []entity.WeeklyWindow{}
	if err := r.DB.SelectContext(ctx, &windows, query, userID); err != nil {
		logger.Error("AvailabilityRepository:ListWindows", err)
		return nil, err
	}
	return windows, nil
}

// ReplaceWindows swaps the whole template in one transaction and touches the profile
// so that an emptied template still changes the user's activity timestamp.
func (r *AvailabilityRepository) ReplaceWindows(ctx context.Context, userID uuid.UUID, windows []entity.WeeklyWindow) error {
	err := r.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM weekly_windows WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, w := range windows {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO weekly_windows (user_id, day_of_week, start_minute, end_minute, updated_at)
				VALUES ($1, $2, $3, $4, NOW())
			`, userID, w.DayOfWeek, w.StartMinute, w.EndMinute)
			if err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO availability_profiles (user_id, time_zone, updated_at)
			VALUES ($1, 'UTC', NOW())
			ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		`, userID)
		return err
	})
	if err != nil {
		logger.Error("AvailabilityRepository:ReplaceWindows", err)
		return err
	}
	return nil
}

// ===================== Overrides =====================

func (r *AvailabilityRepository) ListOverrides(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]entity.AvailabilityOverride, error) {
	query := `
		SELECT id, user_id, start_at, end_at, kind, note, updated_at, deleted_at
		FROM availability_overrides
		WHERE user_id = $1 AND deleted_at IS NULL
		  AND start_at < $3 AND end_at > $2
		ORDER BY start_at, id
	`

	overrides := []entity.AvailabilityOverride{}
	if err := r.DB.SelectContext(ctx, &overrides, query, userID, from, to); err != nil {
		logger.Error("AvailabilityRepository:ListOverrides", err)
		return nil, err
	}
	return overrides, nil
}

func (r *AvailabilityRepository) CreateOverride(ctx context.Context, o *entity.AvailabilityOverride) (*entity.AvailabilityOverride, error) {
	query := `
		INSERT INTO availability_overrides (user_id, start_at, end_at, kind, note, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, user_id, start_at, end_at, kind, note, updated_at, deleted_at
	`

	var created entity.AvailabilityOverride
	err := r.DB.GetContext(ctx, &created, query, o.UserID, o.StartAt.UTC(), o.EndAt.UTC(), o.Kind, o.Note)
	if err != nil {
		logger.Error("AvailabilityRepository:CreateOverride", err)
		return nil, err
	}
	return &created, nil
}

// SoftDeleteOverride marks the override deleted and bumps updated_at. It reports false
// when no live override with that id belongs to the user.
func (r *AvailabilityRepository) SoftDeleteOverride(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	query := `
		UPDATE availability_overrides
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING id
	`

	var deleted uuid.UUID
	err := r.DB.GetContext(ctx, &deleted, query, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		logger.Error("AvailabilityRepository:SoftDeleteOverride", err)
		return false, err
	}
	return true, nil
}
