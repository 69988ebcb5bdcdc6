package models

import "time"

// SessionStatus tracks a confirmed session after both parties agreed.
type SessionStatus string

const (
	SessionConfirmed SessionStatus = "confirmed"
	SessionCancelled SessionStatus = "cancelled"
	SessionCompleted SessionStatus = "completed"
)

// ConfirmedSession is a mutually agreed recurring workout window. It is
// created only when a proposal is accepted and leaves the confirmed state
// only through an explicit cancel or complete call, never silently.
type ConfirmedSession struct {
	ID           string        `bson:"id" json:"id"`
	Participants [2]string     `bson:"participants" json:"participants"`
	Day          Day           `bson:"day" json:"day"`
	Start        int           `bson:"start" json:"start"`
	End          int           `bson:"end" json:"end"`
	Status       SessionStatus `bson:"status" json:"status"`
	ProposalID   string        `bson:"proposalId" json:"proposalId"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
}

// HasParticipant reports whether userID takes part in the session.
func (s ConfirmedSession) HasParticipant(userID string) bool {
	return s.Participants[0] == userID || s.Participants[1] == userID
}

// OtherParticipant returns the counterpart of userID, or an empty string if
// userID is not a participant.
func (s ConfirmedSession) OtherParticipant(userID string) string {
	switch userID {
	case s.Participants[0]:
		return s.Participants[1]
	case s.Participants[1]:
		return s.Participants[0]
	}
	return ""
}
