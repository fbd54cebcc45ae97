package dto

import (
	"fmt"
	"time"

	"fairmeet/modules/availability/entity"
	"fairmeet/modules/meeting/engine"
)

// ===================== Request DTOs =====================

type SetProfileRequest struct {
	TimeZone string `json:"time_zone" validate:"required"`
}

type WindowDTO struct {
	DayOfWeek   int `json:"day_of_week"` // 1=Monday ... 7=Sunday
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

type ReplaceWindowsRequest struct {
	Windows []WindowDTO `json:"windows"`
}

type CreateOverrideRequest struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Kind    string    `json:"kind"` // AVAILABLE | UNAVAILABLE
	Note    string    `json:"note"`
}

// ===================== Response DTOs =====================

type ProfileResponse struct {
	UserID    string    `json:"user_id"`
	TimeZone  string    `json:"time_zone"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WindowsResponse struct {
	TimeZone string      `json:"time_zone"`
	Windows  []WindowDTO `json:"windows"`
}

type OverrideResponse struct {
	ID        string    `json:"id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Kind      string    `json:"kind"`
	Note      string    `json:"note,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type IntervalDTO struct {
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
	Label       string `json:"label"`
}

type EffectiveDayDTO struct {
	Date      string        `json:"date"`
	DayOfWeek int           `json:"day_of_week"`
	Intervals []IntervalDTO `json:"intervals"`
}

type EffectiveResponse struct {
	TimeZone string            `json:"time_zone"`
	Days     []EffectiveDayDTO `json:"days"`
}

// ===================== Mapper Functions =====================

func ToProfileResponse(p *entity.AvailabilityProfile) *ProfileResponse {
	return &ProfileResponse{
		UserID:    p.UserID.String(),
		TimeZone:  p.TimeZone,
		UpdatedAt: p.UpdatedAt,
	}
}

func ToWindowDTOs(windows []entity.WeeklyWindow) []WindowDTO {
	out := make([]WindowDTO, 0, len(windows))
	for _, w := range windows {
		out = append(out, WindowDTO{DayOfWeek: w.DayOfWeek, StartMinute: w.StartMinute, EndMinute: w.EndMinute})
	}
	return out
}

func ToOverrideResponse(o *entity.AvailabilityOverride) OverrideResponse {
	resp := OverrideResponse{
		ID:        o.ID.String(),
		StartAt:   o.StartAt.UTC(),
		EndAt:     o.EndAt.UTC(),
		Kind:      string(o.Kind),
		UpdatedAt: o.UpdatedAt,
	}
	if o.Note != nil {
		resp.Note = *o.Note
	}
	return resp
}

func ToEffectiveDay(date engine.Date, intervals []engine.Interval) EffectiveDayDTO {
	day := EffectiveDayDTO{
		Date:      date.String(),
		DayOfWeek: date.ISOWeekday(),
		Intervals: make([]IntervalDTO, 0, len(intervals)),
	}
	for _, in := range intervals {
		day.Intervals = append(day.Intervals, IntervalDTO{
			StartMinute: in.Start,
			EndMinute:   in.End,
			Label:       FormatMinute(in.Start) + "-" + FormatMinute(in.End),
		})
	}
	return day
}

// FormatMinute renders a minute-of-day as HH:MM; 1440 renders as 24:00.
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
