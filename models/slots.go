package models

// OverlapSlot is an hour range within one day where both users' declared
// availability holds simultaneously. Derived on demand, never persisted.
type OverlapSlot struct {
	Day   Day `json:"day"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Hours returns the slot length in hours.
func (s OverlapSlot) Hours() int {
	return s.End - s.Start
}

// SessionCandidate is a fixed-duration window inside an overlap slot,
// eligible to become a proposed session.
type SessionCandidate struct {
	Day   Day `json:"day"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// WeeklyPlan pairs two session candidates on distinct days. Score is the
// distance of the day gap from the ideal three-day spacing; lower is better.
// Plans are ephemeral, generated only for ranking and presentation.
type WeeklyPlan struct {
	First  SessionCandidate `json:"first"`
	Second SessionCandidate `json:"second"`
	DayGap int              `json:"dayGap"`
	Score  int              `json:"score"`
}
