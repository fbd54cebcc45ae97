package entity

import (
	"time"

	"github.com/google/uuid"
)

type OverrideKind string

const (
	OverrideKindAvailable   OverrideKind = "AVAILABLE"
	OverrideKindUnavailable OverrideKind = "UNAVAILABLE"
)

func (k OverrideKind) Valid() bool {
	return k == OverrideKindAvailable || k == OverrideKindUnavailable
}

// AvailabilityProfile holds the user's home time zone.
type AvailabilityProfile struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	TimeZone  string    `db:"time_zone" json:"time_zone"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WeeklyWindow is one row of the user's recurring template. DayOfWeek is ISO (1=Monday).
type WeeklyWindow struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AvailabilityOverride is a user-entered change to availability over a UTC span.
type AvailabilityOverride struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	UserID    uuid.UUID    `db:"user_id" json:"user_id"`
	StartAt   time.Time    `db:"start_at" json:"start_at"`
	EndAt     time.Time    `db:"end_at" json:"end_at"`
	Kind      OverrideKind `db:"kind" json:"kind"`
	Note      *string      `db:"note" json:"note,omitempty"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time   `db:"deleted_at" json:"deleted_at,omitempty"`
}
