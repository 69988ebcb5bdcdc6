package models

import "time"

// ProposalStatus tracks a proposal through its negotiation lifecycle.
type ProposalStatus string

const (
	ProposalPending         ProposalStatus = "pending"
	ProposalAccepted        ProposalStatus = "accepted"
	ProposalRejected        ProposalStatus = "rejected"
	ProposalCounterProposed ProposalStatus = "counter_proposed"
	ProposalExpired         ProposalStatus = "expired"
	ProposalConfirmed       ProposalStatus = "confirmed"
	ProposalCancelled       ProposalStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
// A counter-proposed proposal is terminal; the negotiation continues on the
// linked proposal that replaced it.
func (s ProposalStatus) Terminal() bool {
	switch s {
	case ProposalRejected, ProposalCounterProposed, ProposalExpired,
		ProposalConfirmed, ProposalCancelled:
		return true
	}
	return false
}

// Proposal is a negotiable offer of one specific weekly session between two
// users. ThreadID groups a proposal with the counter proposals spawned from
// it, so a whole negotiation can be traced.
type Proposal struct {
	ID         string         `bson:"id" json:"id"`
	ProposerID string         `bson:"proposerId" json:"proposerId"`
	PartnerID  string         `bson:"partnerId" json:"partnerId"`
	Day        Day            `bson:"day" json:"day"`
	Start      int            `bson:"start" json:"start"`
	End        int            `bson:"end" json:"end"`
	Status     ProposalStatus `bson:"status" json:"status"`
	CreatedAt  time.Time      `bson:"createdAt" json:"createdAt"`
	ThreadID   string         `bson:"threadId" json:"threadId"`
}

// Slot returns the proposed window as a candidate value.
func (p Proposal) Slot() SessionCandidate {
	return SessionCandidate{Day: p.Day, Start: p.Start, End: p.End}
}

// Involves reports whether userID is one of the two negotiating parties.
func (p Proposal) Involves(userID string) bool {
	return p.ProposerID == userID || p.PartnerID == userID
}

// OtherParty returns the counterpart of userID in the negotiation, or an
// empty string if userID is not involved.
func (p Proposal) OtherParty(userID string) string {
	switch userID {
	case p.ProposerID:
		return p.PartnerID
	case p.PartnerID:
		return p.ProposerID
	}
	return ""
}

// Decision is a partner's answer to a pending proposal.
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionReject  Decision = "reject"
	DecisionCounter Decision = "counter"
)
