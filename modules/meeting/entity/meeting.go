package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// MeetingStatus represents the status of a confirmed meeting
type MeetingStatus string

const (
	MeetingStatusScheduled MeetingStatus = "scheduled"
	MeetingStatusCancelled MeetingStatus = "cancelled"
)

// SuggestionRun is a persisted ranking, reusable while its data fingerprint holds.
type SuggestionRun struct {
	ID              string         `db:"id" json:"id"`
	RequestKey      string         `db:"request_key" json:"request_key"`
	DataFingerprint string         `db:"data_fingerprint" json:"data_fingerprint"`
	MaxCandidates   int            `db:"max_candidates" json:"max_candidates"`
	TimeZone        string         `db:"time_zone" json:"time_zone"`
	AttendeeIDs     pq.StringArray `db:"attendee_ids" json:"attendee_ids"`
	Request         types.JSONText `db:"request" json:"request"`       // JSONB
	Candidates      types.JSONText `db:"candidates" json:"candidates"` // JSONB
	CreatedBy       uuid.UUID      `db:"created_by" json:"created_by"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

func (SuggestionRun) TableName() string {
	return "suggestion_runs"
}

// Meeting is a candidate the organiser confirmed.
type Meeting struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	RunID       string         `db:"run_id" json:"run_id"`
	Title       string         `db:"title" json:"title"`
	StartAt     time.Time      `db:"start_at" json:"start_at"`
	EndAt       time.Time      `db:"end_at" json:"end_at"`
	Status      MeetingStatus  `db:"status" json:"status"`
	TimeZone    string         `db:"time_zone" json:"time_zone"`
	AttendeeIDs pq.StringArray `db:"attendee_ids" json:"attendee_ids"`
	CreatedBy   uuid.UUID      `db:"created_by" json:"created_by"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

func (Meeting) TableName() string {
	return "meetings"
}

// HasAttendee reports whether userID is the organiser or one of the attendees.
func (m *Meeting) HasAttendee(userID uuid.UUID) bool {
	return m.CreatedBy == userID || containsID(m.AttendeeIDs, userID)
}

// CanView reports whether userID created the run or is one of its attendees.
func (r *SuggestionRun) CanView(userID uuid.UUID) bool {
	return r.CreatedBy == userID || containsID(r.AttendeeIDs, userID)
}

func containsID(ids []string, userID uuid.UUID) bool {
	want := userID.String()
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
