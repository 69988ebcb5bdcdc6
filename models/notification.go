package models

import "time"

// EventType names a negotiation lifecycle event emitted through the
// notification port.
type EventType string

const (
	EventProposalCreated   EventType = "proposal_created"
	EventProposalAccepted  EventType = "proposal_accepted"
	EventProposalRejected  EventType = "proposal_rejected"
	EventProposalCountered EventType = "proposal_countered"
	EventProposalExpired   EventType = "proposal_expired"
	EventSessionConfirmed  EventType = "session_confirmed"
	EventSessionCancelled  EventType = "session_cancelled"
	EventSessionCompleted  EventType = "session_completed"
)

// MatchEvent is one lifecycle notification addressed to a single recipient.
// Concrete delivery (push, chat, mail) lives behind the notification port;
// the core only describes what happened and to whom.
type MatchEvent struct {
	Type        EventType `bson:"type" json:"type"`
	RecipientID string    `bson:"recipientId" json:"recipientId"`
	ActorID     string    `bson:"actorId,omitempty" json:"actorId,omitempty"`
	ProposalID  string    `bson:"proposalId,omitempty" json:"proposalId,omitempty"`
	SessionID   string    `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	Day         Day       `bson:"day,omitempty" json:"day,omitempty"`
	Start       int       `bson:"start,omitempty" json:"start,omitempty"`
	End         int       `bson:"end,omitempty" json:"end,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// NotificationRecord is the persisted form of an emitted event, kept so a
// presentation layer can list what a user was told.
type NotificationRecord struct {
	ID        string     `bson:"id" json:"id"`
	UserID    string     `bson:"userId" json:"userId"`
	Event     MatchEvent `bson:"event" json:"event"`
	Read      bool       `bson:"read" json:"read"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
}
