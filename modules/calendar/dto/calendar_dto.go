package dto

import (
	"time"

	"fairmeet/modules/calendar/entity"
)

// Provider constants
const (
	ProviderGoogle = "google"
)

// ========== Calendar Connection DTOs ==========

// AuthURLResponse carries the Google consent URL the client should open.
type AuthURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// CalendarConnectionResponse represents a calendar connection
type CalendarConnectionResponse struct {
	ID            string `json:"id"`
	Provider      string `json:"provider"`
	CalendarEmail string `json:"calendar_email"`
	IsActive      bool   `json:"is_active"`
	ConnectedAt   string `json:"connected_at"`
}

// CalendarConnectionListResponse represents list of connections
type CalendarConnectionListResponse struct {
	Connections []CalendarConnectionResponse `json:"connections"`
}

// ========== Sync DTOs ==========

type SyncRequest struct {
	Days int `json:"days"`
}

type SyncResponse struct {
	TaskID string `json:"task_id"`
	Days   int    `json:"days"`
}

// SyncBusyPayload is the asynq payload of the calendar:sync_busy task.
type SyncBusyPayload struct {
	UserID string `json:"user_id"`
	Days   int    `json:"days"`
}

// ========== ICS DTOs ==========

// ImportICSRequest imports busy time from raw ICS text. From and To are YYYY-MM-DD
// dates interpreted in TimeZone (UTC when empty); To is inclusive.
type ImportICSRequest struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	From     string `json:"from"`
	To       string `json:"to"`
	TimeZone string `json:"time_zone"`
}

type ImportICSResponse struct {
	Source   string `json:"source"`
	Imported int    `json:"imported"`
}

// ========== Busy DTOs ==========

// TimeSlot represents a time period
type TimeSlot struct {
	Start string `json:"start"` // RFC3339
	End   string `json:"end"`   // RFC3339
}

type BusyBlockResponse struct {
	ID     string `json:"id"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Source string `json:"source"`
}

// ========== Mappers ==========

func ToConnectionResponse(c *entity.CalendarConnection) CalendarConnectionResponse {
	return CalendarConnectionResponse{
		ID:            c.ID.String(),
		Provider:      c.Provider,
		CalendarEmail: c.CalendarEmail,
		IsActive:      c.IsActive,
		ConnectedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func ToBusyBlockResponses(blocks []entity.BusyBlock) []BusyBlockResponse {
	out := make([]BusyBlockResponse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, BusyBlockResponse{
			ID:     b.ID.String(),
			Start:  b.StartUTC.UTC().Format(time.RFC3339),
			End:    b.EndUTC.UTC().Format(time.RFC3339),
			Source: b.Source,
		})
	}
	return out
}
