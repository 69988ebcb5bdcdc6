package models

import (
	"fmt"
	"sort"
)

// Day identifies a day of the week in a recurring weekly calendar.
type Day string

const (
	Monday    Day = "mon"
	Tuesday   Day = "tue"
	Wednesday Day = "wed"
	Thursday  Day = "thu"
	Friday    Day = "fri"
	Saturday  Day = "sat"
	Sunday    Day = "sun"
)

// WeekDays lists all days in week order. Iteration over availability maps
// goes through this slice so derived slots come out deterministic.
var WeekDays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var dayIndex = map[Day]int{
	Monday: 0, Tuesday: 1, Wednesday: 2, Thursday: 3, Friday: 4, Saturday: 5, Sunday: 6,
}

// Index returns the day's position in the week (Monday = 0), or -1 for an
// unknown day string.
func (d Day) Index() int {
	if i, ok := dayIndex[d]; ok {
		return i
	}
	return -1
}

// Valid reports whether d is one of the seven known day values.
func (d Day) Valid() bool {
	return d.Index() >= 0
}

// ParseDay converts a wire value ("mon".."sun") into a Day.
func ParseDay(s string) (Day, error) {
	d := Day(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown day %q", s)
	}
	return d, nil
}

// HourRange is a half-open interval [Start, End) of whole hours within one
// day, with 0 <= Start < End <= 24.
type HourRange struct {
	Start int `bson:"start" json:"start"`
	End   int `bson:"end" json:"end"`
}

// Valid reports whether the range is well-formed.
func (r HourRange) Valid() bool {
	return r.Start >= 0 && r.End <= 24 && r.Start < r.End
}

// Hours returns the range length in hours.
func (r HourRange) Hours() int {
	return r.End - r.Start
}

// ContainsRange reports whether other lies fully inside r.
func (r HourRange) ContainsRange(other HourRange) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// WeeklyAvailability is a user's declared recurring availability: for each
// day, a set of disjoint, sorted, merged hour ranges.
type WeeklyAvailability struct {
	Days map[Day][]HourRange `bson:"days" json:"days"`
}

// NewWeeklyAvailability returns an empty calendar.
func NewWeeklyAvailability() WeeklyAvailability {
	return WeeklyAvailability{Days: make(map[Day][]HourRange)}
}

// Add inserts [start, end) on the given day, merging it with any ranges it
// touches or overlaps so the per-day invariant (disjoint, sorted) holds.
func (w *WeeklyAvailability) Add(day Day, start, end int) error {
	r := HourRange{Start: start, End: end}
	if !day.Valid() {
		return fmt.Errorf("unknown day %q", day)
	}
	if !r.Valid() {
		return fmt.Errorf("invalid hour range [%d, %d)", start, end)
	}
	if w.Days == nil {
		w.Days = make(map[Day][]HourRange)
	}
	merged := append(append([]HourRange{}, w.Days[day]...), r)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })

	out := merged[:0]
	for _, cur := range merged {
		if len(out) > 0 && cur.Start <= out[len(out)-1].End {
			if cur.End > out[len(out)-1].End {
				out[len(out)-1].End = cur.End
			}
			continue
		}
		out = append(out, cur)
	}
	w.Days[day] = out
	return nil
}

// Remove subtracts [start, end) from the given day, splitting ranges that
// straddle the removed window.
func (w *WeeklyAvailability) Remove(day Day, start, end int) error {
	r := HourRange{Start: start, End: end}
	if !day.Valid() {
		return fmt.Errorf("unknown day %q", day)
	}
	if !r.Valid() {
		return fmt.Errorf("invalid hour range [%d, %d)", start, end)
	}
	var out []HourRange
	for _, cur := range w.Days[day] {
		if cur.End <= r.Start || cur.Start >= r.End {
			out = append(out, cur)
			continue
		}
		if cur.Start < r.Start {
			out = append(out, HourRange{Start: cur.Start, End: r.Start})
		}
		if cur.End > r.End {
			out = append(out, HourRange{Start: r.End, End: cur.End})
		}
	}
	if len(out) == 0 {
		delete(w.Days, day)
	} else {
		w.Days[day] = out
	}
	return nil
}

// Contains reports whether [start, end) on day lies fully inside one of the
// calendar's declared ranges.
func (w WeeklyAvailability) Contains(day Day, start, end int) bool {
	for _, cur := range w.Days[day] {
		if cur.ContainsRange(HourRange{Start: start, End: end}) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy; callers hold snapshots across lock boundaries,
// so shared backing slices are not acceptable.
func (w WeeklyAvailability) Clone() WeeklyAvailability {
	out := NewWeeklyAvailability()
	for day, ranges := range w.Days {
		out.Days[day] = append([]HourRange{}, ranges...)
	}
	return out
}

// Validate checks the per-day invariant on a calendar received from the
// outside: known days, well-formed ranges, sorted and disjoint.
func (w WeeklyAvailability) Validate() error {
	for day, ranges := range w.Days {
		if !day.Valid() {
			return fmt.Errorf("unknown day %q", day)
		}
		for i, r := range ranges {
			if !r.Valid() {
				return fmt.Errorf("%s: invalid hour range [%d, %d)", day, r.Start, r.End)
			}
			if i > 0 && r.Start < ranges[i-1].End {
				return fmt.Errorf("%s: ranges out of order or overlapping at [%d, %d)", day, r.Start, r.End)
			}
		}
	}
	return nil
}
