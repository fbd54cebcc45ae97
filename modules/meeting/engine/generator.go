package engine

import "time"

// Window is a generated UTC candidate window.
type Window struct {
	StartAt time.Time
	EndAt   time.Time
}

// WindowSpec bounds window generation. Dates and minutes are wall-clock values in Location.
type WindowSpec struct {
	Location        *time.Location
	RangeStart      Date
	RangeEnd        Date
	DurationMinutes int
	StepMinutes     int
	DayStartMinute  int
	DayEndMinute    int
}

// GenerateWindows lists every window of DurationMinutes starting at DayStartMinute and
// advancing by StepMinutes until the window would pass DayEndMinute, for each date in
// [RangeStart, RangeEnd]. Windows whose wall-clock start or end does not exist in the
// zone are skipped.
func GenerateWindows(spec WindowSpec) []Window {
	if spec.Location == nil || spec.DurationMinutes <= 0 || spec.StepMinutes <= 0 {
		return nil
	}

	var out []Window
	for date := spec.RangeStart; !date.After(spec.RangeEnd); date = date.AddDays(1) {
		for offset := spec.DayStartMinute; offset+spec.DurationMinutes <= spec.DayEndMinute; offset += spec.StepMinutes {
			start, err := UTCFromLocalWallClock(date, offset, spec.Location)
			if err != nil {
				continue
			}
			end, err := UTCFromLocalWallClock(date, offset+spec.DurationMinutes, spec.Location)
			if err != nil || !end.After(start) {
				continue
			}
			out = append(out, Window{StartAt: start, EndAt: end})
		}
	}
	return out
}
