package engine

import (
	"sort"
	"time"
)

const (
	// MinutesPerDay is the exclusive upper bound of a minute-of-day interval.
	MinutesPerDay = 1440

	// DefaultMinIntervalMinutes is the smallest interval kept by Normalize for visible availability.
	DefaultMinIntervalMinutes = 15

	// compositionMinSize is used while composing templates and overrides.
	compositionMinSize = 1
)

// Interval is a half-open span of minutes since local midnight.
type Interval struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the interval length in minutes.
func (i Interval) Len() int {
	return i.End - i.Start
}

// Covers reports whether i fully contains [start, end].
func (i Interval) Covers(start, end int) bool {
	return i.Start <= start && i.End >= end
}

// Normalize clamps every interval to [0, MinutesPerDay], drops empty, inverted and
// too-short intervals, sorts by start and merges overlapping or touching intervals.
// Short pieces are dropped before merging. A minSize below 1 selects
// DefaultMinIntervalMinutes.
func Normalize(intervals []Interval, minSize int) []Interval {
	if minSize < 1 {
		minSize = DefaultMinIntervalMinutes
	}

	kept := make([]Interval, 0, len(intervals))
	for _, in := range intervals {
		in.Start = clampMinute(in.Start)
		in.End = clampMinute(in.End)
		if in.Len() < minSize {
			continue
		}
		kept = append(kept, in)
	}
	if len(kept) == 0 {
		return []Interval{}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Start != kept[j].Start {
			return kept[i].Start < kept[j].Start
		}
		return kept[i].End < kept[j].End
	})

	merged := []Interval{kept[0]}
	for _, next := range kept[1:] {
		last := &merged[len(merged)-1]
		if next.Start <= last.End {
			if next.End > last.End {
				last.End = next.End
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

// Union returns the normalized union of base and add.
func Union(base, add []Interval, minSize int) []Interval {
	all := make([]Interval, 0, len(base)+len(add))
	all = append(all, base...)
	all = append(all, add...)
	return Normalize(all, minSize)
}

// Subtract removes every interval of remove from base.
func Subtract(base, remove []Interval, minSize int) []Interval {
	base = Normalize(base, compositionMinSize)
	remove = Normalize(remove, compositionMinSize)
	if len(remove) == 0 {
		return Normalize(base, minSize)
	}

	var out []Interval
	for _, b := range base {
		pieces := []Interval{b}
		for _, r := range remove {
			var next []Interval
			for _, p := range pieces {
				if r.End <= p.Start || r.Start >= p.End {
					next = append(next, p)
					continue
				}
				if r.Start > p.Start {
					next = append(next, Interval{Start: p.Start, End: r.Start})
				}
				if r.End < p.End {
					next = append(next, Interval{Start: r.End, End: p.End})
				}
			}
			pieces = next
			if len(pieces) == 0 {
				break
			}
		}
		out = append(out, pieces...)
	}
	return Normalize(out, minSize)
}

// IntervalsOverlap reports whether [aStart, aEnd) and [bStart, bEnd) overlap.
// Touching endpoints do not overlap.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func clampMinute(m int) int {
	if m < 0 {
		return 0
	}
	if m > MinutesPerDay {
		return MinutesPerDay
	}
	return m
}
