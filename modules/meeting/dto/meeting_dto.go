package dto

import (
	"time"

	"fairmeet/modules/meeting/engine"
	"fairmeet/modules/meeting/entity"
)

// ===================== Request DTOs =====================

// SuggestRequest asks for ranked meeting windows. Dates are YYYY-MM-DD in TimeZone;
// minutes are local minutes of day.
type SuggestRequest struct {
	Title           string   `json:"title"`
	TimeZone        string   `json:"time_zone"`
	RangeStart      string   `json:"range_start"`
	RangeEnd        string   `json:"range_end"`
	DurationMinutes int      `json:"duration_minutes"`
	StepMinutes     int      `json:"step_minutes"`
	DayStartMinute  int      `json:"day_start_minute"`
	DayEndMinute    int      `json:"day_end_minute"`
	AttendeeIDs     []string `json:"attendee_ids"`
	MaxCandidates   int      `json:"max_candidates"`
}

type ConfirmRequest struct {
	RunID   string    `json:"run_id"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Title   string    `json:"title"`
}

// ===================== Response DTOs =====================

type SuggestResponse struct {
	RunID           string             `json:"run_id"`
	RequestKey      string             `json:"request_key"`
	DataFingerprint string             `json:"data_fingerprint"`
	Reused          bool               `json:"reused"`
	CreatedAt       time.Time          `json:"created_at"`
	Candidates      []engine.Candidate `json:"candidates"`
}

type MeetingResponse struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	Title       string    `json:"title"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      string    `json:"status"`
	TimeZone    string    `json:"time_zone"`
	AttendeeIDs []string  `json:"attendee_ids"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ===================== Mapper Functions =====================

func ToMeetingResponse(m *entity.Meeting) MeetingResponse {
	ids := make([]string, len(m.AttendeeIDs))
	copy(ids, m.AttendeeIDs)
	return MeetingResponse{
		ID:          m.ID.String(),
		RunID:       m.RunID,
		Title:       m.Title,
		StartAt:     m.StartAt.UTC(),
		EndAt:       m.EndAt.UTC(),
		Status:      string(m.Status),
		TimeZone:    m.TimeZone,
		AttendeeIDs: ids,
		CreatedBy:   m.CreatedBy.String(),
		CreatedAt:   m.CreatedAt,
	}
}

func ToMeetingResponses(meetings []entity.Meeting) []MeetingResponse {
	out := make([]MeetingResponse, 0, len(meetings))
	for i := range meetings {
		out = append(out, ToMeetingResponse(&meetings[i]))
	}
	return out
}

// ToSuggestResponse decodes the stored candidates of run.
func ToSuggestResponse(run *entity.SuggestionRun, reused bool) (*SuggestResponse, error) {
	candidates := []engine.Candidate{}
	if len(run.Candidates) > 0 {
		if err := run.Candidates.Unmarshal(&candidates); err != nil {
			return nil, err
		}
	}
	return &SuggestResponse{
		RunID:           run.ID,
		RequestKey:      run.RequestKey,
		DataFingerprint: run.DataFingerprint,
		Reused:          reused,
		CreatedAt:       run.CreatedAt,
		Candidates:      candidates,
	}, nil
}
