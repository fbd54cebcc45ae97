package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fairmeet/core/database"
	"fairmeet/core/logger"
	"fairmeet/modules/calendar/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CalendarRepository interface {
	// Connections
	UpsertConnection(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error)
	GetConnection(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error)
	GetConnectionsByUserID(ctx context.Context, userID uuid.UUID) ([]entity.CalendarConnection, error)
	UpdateToken(ctx context.Context, id uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error
	DeactivateConnection(ctx context.Context, userID uuid.UUID, provider string) (bool, error)

	// Busy blocks
	ListBusyBlocks(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]entity.BusyBlock, error)
	ListBusyBlocksBySource(ctx context.Context, userID uuid.UUID, source string, from, to time.Time) ([]entity.BusyBlock, error)
	ReplaceBusyBlocks(ctx context.Context, userID uuid.UUID, source string, from, to time.Time, blocks []entity.TimeRange) error
}

type calendarRepository struct {
	db database.Database
}

func NewCalendarRepository(db database.Database) CalendarRepository {
	return &calendarRepository{db: db}
}

const connectionColumns = `id, user_id, provider, access_token, refresh_token, token_expires_at,
	calendar_email, is_active, created_at, updated_at`

// ===================== Connections =====================

func (r *calendarRepository) UpsertConnection(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error) {
	query := `
		INSERT INTO calendar_connections (user_id, provider, access_token, refresh_token, token_expires_at, calendar_email, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = CASE WHEN EXCLUDED.refresh_token = '' THEN calendar_connections.refresh_token ELSE EXCLUDED.refresh_token END,
			token_expires_at = EXCLUDED.token_expires_at,
			calendar_email = EXCLUDED.calendar_email,
			is_active = TRUE,
			updated_at = NOW()
		RETURNING ` + connectionColumns

	// connecting switches the user off demo busy time
	var saved entity.CalendarConnection
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &saved, query,
			conn.UserID, conn.Provider, conn.AccessToken, conn.RefreshToken, conn.TokenExpiresAt.UTC(), conn.CalendarEmail)
		if err != nil {
			return err
		}
		return touchBusyChange(ctx, tx, conn.UserID)
	})
	if err != nil {
		logger.Error("CalendarRepository:UpsertConnection", err)
		return nil, err
	}
	return &saved, nil
}

func (r *calendarRepository) GetConnection(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM calendar_connections
		WHERE user_id = $1 AND provider = $2 AND is_active = TRUE`

	var conn entity.CalendarConnection
	if err := r.db.GetContext(ctx, &conn, query, userID, provider); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("CalendarRepository:GetConnection", err)
		return nil, err
	}
	return &conn, nil
}

func (r *calendarRepository) GetConnectionsByUserID(ctx context.Context, userID uuid.UUID) ([]entity.CalendarConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM calendar_connections
		WHERE user_id = $1 AND is_active = TRUE ORDER BY created_at`

	conns := []entity.CalendarConnection{}
	if err := r.db.SelectContext(ctx, &conns, query, userID); err != nil {
		logger.Error("CalendarRepository:GetConnectionsByUserID", err)
		return nil, err
	}
	return conns, nil
}

func (r *calendarRepository) UpdateToken(ctx context.Context, id uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE calendar_connections
		SET access_token = $2, refresh_token = $3, token_expires_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	if err := r.db.ExecContext(ctx, query, id, accessToken, refreshToken, expiresAt.UTC()); err != nil {
		logger.Error("CalendarRepository:UpdateToken", err)
		return err
	}
	return nil
}

func (r *calendarRepository) DeactivateConnection(ctx context.Context, userID uuid.UUID, provider string) (bool, error) {
	query := `
		UPDATE calendar_connections
		SET is_active = FALSE, access_token = '', refresh_token = '', updated_at = NOW()
		WHERE user_id = $1 AND provider = $2 AND is_active = TRUE
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &id, query, userID, provider); err != nil {
			return err
		}
		return touchBusyChange(ctx, tx, userID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		logger.Error("CalendarRepository:DeactivateConnection", err)
		return false, err
	}
	return true, nil
}

// ===================== Busy blocks =====================

func (r *calendarRepository) ListBusyBlocks(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]entity.BusyBlock, error) {
	query := `
		SELECT id, user_id, start_utc, end_utc, source, created_at
		FROM busy_blocks
		WHERE user_id = $1 AND start_utc < $3 AND end_utc > $2
		ORDER BY start_utc, end_utc
	`

	blocks := []entity.BusyBlock{}
	if err := r.db.SelectContext(ctx, &blocks, query, userID, from.UTC(), to.UTC()); err != nil {
		logger.Error("CalendarRepository:ListBusyBlocks", err)
		return nil, err
	}
	return blocks, nil
}

func (r *calendarRepository) ListBusyBlocksBySource(ctx context.Context, userID uuid.UUID, source string, from, to time.Time) ([]entity.BusyBlock, error) {
	query := `
		SELECT id, user_id, start_utc, end_utc, source, created_at
		FROM busy_blocks
		WHERE user_id = $1 AND source = $2 AND start_utc < $4 AND end_utc > $3
		ORDER BY start_utc, end_utc
	`

	blocks := []entity.BusyBlock{}
	if err := r.db.SelectContext(ctx, &blocks, query, userID, source, from.UTC(), to.UTC()); err != nil {
		logger.Error("CalendarRepository:ListBusyBlocksBySource", err)
		return nil, err
	}
	return blocks, nil
}

// ReplaceBusyBlocks drops the source's blocks that overlap [from, to) and inserts blocks
// in their place, atomically. The user's change marker moves even when blocks is empty.
func (r *calendarRepository) ReplaceBusyBlocks(ctx context.Context, userID uuid.UUID, source string, from, to time.Time, blocks []entity.TimeRange) error {
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM busy_blocks
			WHERE user_id = $1 AND source = $2 AND start_utc < $4 AND end_utc > $3
		`, userID, source, from.UTC(), to.UTC())
		if err != nil {
			return err
		}
		for _, b := range blocks {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO busy_blocks (user_id, start_utc, end_utc, source, created_at)
				VALUES ($1, $2, $3, $4, NOW())
			`, userID, b.Start.UTC(), b.End.UTC(), source)
			if err != nil {
				return err
			}
		}
		return touchBusyChange(ctx, tx, userID)
	})
	if err != nil {
		logger.Error("CalendarRepository:ReplaceBusyBlocks", "source", source, "error", err)
		return err
	}
	return nil
}

// touchBusyChange records that the user's busy time changed, so deletions move the
// data fingerprint as well as inserts.
func touchBusyChange(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO busy_block_changes (user_id, changed_at)
		VALUES ($1, NOW())
		ON CONFLICT (user_id) DO UPDATE SET changed_at = GREATEST(busy_block_changes.changed_at, EXCLUDED.changed_at)
	`, userID)
	return err
}
