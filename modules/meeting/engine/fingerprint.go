package engine

import (
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

const noActivity = "none"

// RequestShape is the part of a request that identifies it for reuse.
type RequestShape struct {
	TimeZone        string   `json:"time_zone"`
	RangeStart      Date     `json:"range_start"`
	RangeEnd        Date     `json:"range_end"`
	DurationMinutes int      `json:"duration_minutes"`
	StepMinutes     int      `json:"step_minutes"`
	DayStartMinute  int      `json:"day_start_minute"`
	DayEndMinute    int      `json:"day_end_minute"`
	AttendeeIDs     []string `json:"attendee_ids"`
}

// ShapeOf extracts the request shape of req.
func ShapeOf(req Request) RequestShape {
	ids := make([]string, 0, len(req.Attendees))
	for _, a := range req.Attendees {
		ids = append(ids, a.UserID)
	}
	return RequestShape{
		TimeZone:        req.TimeZone,
		RangeStart:      req.RangeStart,
		RangeEnd:        req.RangeEnd,
		DurationMinutes: req.DurationMinutes,
		StepMinutes:     req.StepMinutes,
		DayStartMinute:  req.DayStartMinute,
		DayEndMinute:    req.DayEndMinute,
		AttendeeIDs:     ids,
	}
}

// ComputeRequestKey hashes the request shape. Attendee order and duplicates do not
// change the key.
func ComputeRequestKey(shape RequestShape) string {
	shape.AttendeeIDs = SortedUniqueIDs(shape.AttendeeIDs)
	// a struct of strings, ints and text-marshalled dates always encodes
	payload, _ := json.Marshal(shape)
	return hashHex(payload)
}

// AttendeeActivity is the latest change recorded for an attendee's availability data.
// Zero times mean no activity. BusyChangedAt moves on every rewrite of the busy set,
// including one that only removes blocks.
type AttendeeActivity struct {
	UserID            string
	TemplateUpdatedAt time.Time
	OverrideUpdatedAt time.Time
	BusyCreatedAt     time.Time
	BusyChangedAt     time.Time
}

// ComputeDataFingerprint hashes the latest activity of every attendee in sorted ID order.
func ComputeDataFingerprint(activity []AttendeeActivity) string {
	sorted := make([]AttendeeActivity, len(activity))
	copy(sorted, activity)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UserID < sorted[j].UserID })

	var b strings.Builder
	for i, a := range sorted {
		if i > 0 && a.UserID == sorted[i-1].UserID {
			continue
		}
		b.WriteString(a.UserID)
		b.WriteByte(':')
		b.WriteString(stamp(latest(a.TemplateUpdatedAt, a.OverrideUpdatedAt)))
		b.WriteByte('|')
		b.WriteString(stamp(latest(a.BusyCreatedAt, a.BusyChangedAt)))
		b.WriteByte('\n')
	}
	return hashHex([]byte(b.String()))
}

// SortedUniqueIDs returns a sorted copy of ids without duplicates or empty values.
func SortedUniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	n := 0
	for i, id := range out {
		if i > 0 && id == out[n-1] {
			continue
		}
		out[n] = id
		n++
	}
	return out[:n]
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return noActivity
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func hashHex(b []byte) string {
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}
