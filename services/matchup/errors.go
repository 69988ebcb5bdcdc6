package matchup

import (
	"fmt"

	"gymbuddy/models"
)

// ConflictError signals that the operation would violate the
// single-active-proposal rule for a user pair, or that a negotiation thread
// has hit its counter cap.
type ConflictError struct {
	UserA      string
	UserB      string
	ProposalID string
	Reason     string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("conflict for pair (%s, %s): %s", e.UserA, e.UserB, e.Reason)
	}
	return fmt.Sprintf("pair (%s, %s) already has an active proposal %s", e.UserA, e.UserB, e.ProposalID)
}

// UnavailableError signals that a proposed slot does not lie inside the
// current intersection of the pair's calendars.
type UnavailableError struct {
	Day    models.Day
	Start  int
	End    int
	Reason string
}

func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return "unavailable: " + e.Reason
	}
	return fmt.Sprintf("slot %s %d-%d is not inside the pair's shared availability", e.Day, e.Start, e.End)
}

// NotAuthorizedError signals that the acting user may not perform the
// operation on this proposal or session.
type NotAuthorizedError struct {
	UserID    string
	Operation string
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("user %s is not authorized to %s", e.UserID, e.Operation)
}

// InvalidSlotError signals a malformed day, hour range, or duration.
type InvalidSlotError struct {
	Reason string
}

func (e *InvalidSlotError) Error() string {
	return "invalid slot: " + e.Reason
}

// NotFoundError signals an unknown id, or a proposal/session that has
// already reached a terminal state and admits no further transitions.
type NotFoundError struct {
	Kind string // "proposal" or "session"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found or no longer active", e.Kind, e.ID)
}
