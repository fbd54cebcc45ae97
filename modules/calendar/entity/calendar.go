package entity

import (
	"time"

	"fairmeet/core/entity"

	"github.com/google/uuid"
)

// CalendarConnection stores a user's calendar provider connection
type CalendarConnection struct {
	entity.BaseEntity
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Provider       string    `db:"provider" json:"provider"` // "google"
	AccessToken    string    `db:"access_token" json:"-"`
	RefreshToken   string    `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time `db:"token_expires_at" json:"token_expires_at"`
	CalendarEmail  string    `db:"calendar_email" json:"calendar_email"`
	IsActive       bool      `db:"is_active" json:"is_active"`
}

func (CalendarConnection) TableName() string {
	return "calendar_connections"
}

// BusyBlock is an absolute UTC span during which the user is busy.
// Source is "google" or "ics:<feed>".
type BusyBlock struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	StartUTC  time.Time `db:"start_utc" json:"start_utc"`
	EndUTC    time.Time `db:"end_utc" json:"end_utc"`
	Source    string    `db:"source" json:"source"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (BusyBlock) TableName() string {
	return "busy_blocks"
}

// TimeRange is a half-open [Start, End) span.
type TimeRange struct {
	Start time.Time
	End   time.Time
}
