package planner

import (
	"sort"

	"gymbuddy/models"
)

const (
	// DefaultSessionHours is the standard workout session length.
	DefaultSessionHours = 2

	// IdealDayGap is the spacing between the two weekly sessions that
	// scores best; plans are ranked by distance from it.
	IdealDayGap = 3

	minDayGap = 1
	maxDayGap = 5

	// maxPlans caps how many ranked plans are returned for presentation.
	maxPlans = 5
)

// Candidates slides a duration-hour window in one-hour steps across each
// overlap slot, producing every start-aligned fit: a slot of length L yields
// max(0, L-duration+1) candidates. Non-positive durations yield nothing.
func Candidates(slots []models.OverlapSlot, duration int) []models.SessionCandidate {
	if duration <= 0 {
		return nil
	}
	var out []models.SessionCandidate
	for _, slot := range slots {
		for start := slot.Start; start+duration <= slot.End; start++ {
			out = append(out, models.SessionCandidate{
				Day:   slot.Day,
				Start: start,
				End:   start + duration,
			})
		}
	}
	return out
}

// Plans enumerates unordered candidate pairs on distinct days, keeps those
// whose day gap lies in [1, 5], scores them by |gap-3|, and returns the top
// five ranked ascending by score with ties broken by earlier day then
// earlier start hour. Fewer than two distinct days means no plans, which is
// not an error.
func Plans(candidates []models.SessionCandidate) []models.WeeklyPlan {
	var plans []models.WeeklyPlan
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			first, second := candidates[i], candidates[j]
			// Order the pair by week position so the gap is well-defined.
			if second.Day.Index() < first.Day.Index() ||
				(second.Day == first.Day && second.Start < first.Start) {
				first, second = second, first
			}
			gap := second.Day.Index() - first.Day.Index()
			if gap < minDayGap || gap > maxDayGap {
				continue
			}
			score := gap - IdealDayGap
			if score < 0 {
				score = -score
			}
			plans = append(plans, models.WeeklyPlan{
				First:  first,
				Second: second,
				DayGap: gap,
				Score:  score,
			})
		}
	}

	sort.Slice(plans, func(i, j int) bool {
		a, b := plans[i], plans[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		if a.First.Day != b.First.Day {
			return a.First.Day.Index() < b.First.Day.Index()
		}
		if a.First.Start != b.First.Start {
			return a.First.Start < b.First.Start
		}
		if a.Second.Day != b.Second.Day {
			return a.Second.Day.Index() < b.Second.Day.Index()
		}
		return a.Second.Start < b.Second.Start
	})

	if len(plans) > maxPlans {
		plans = plans[:maxPlans]
	}
	return plans
}
