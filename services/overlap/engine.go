package overlap

import (
	"gymbuddy/models"
)

// MinSlotHours is the shortest overlap worth reporting; anything shorter
// cannot host a session.
const MinSlotHours = 1

// Intersect computes, per day, where both users' availability holds at the
// same time. Each day's sorted range sets are merged with two pointers, so
// the whole pass is linear in the total range count once per-day sets are
// sorted on insert. The result is deterministic (week order, then start
// hour) and symmetric: Intersect(a, b) and Intersect(b, a) yield the same
// slots.
func Intersect(a, b models.WeeklyAvailability) []models.OverlapSlot {
	var slots []models.OverlapSlot
	for _, day := range models.WeekDays {
		ra, rb := a.Days[day], b.Days[day]
		if len(ra) == 0 || len(rb) == 0 {
			continue
		}
		i, j := 0, 0
		for i < len(ra) && j < len(rb) {
			start := max(ra[i].Start, rb[j].Start)
			end := min(ra[i].End, rb[j].End)
			if end-start >= MinSlotHours {
				slots = append(slots, models.OverlapSlot{Day: day, Start: start, End: end})
			}
			// Advance whichever range finishes first.
			if ra[i].End < rb[j].End {
				i++
			} else {
				j++
			}
		}
	}
	return slots
}
