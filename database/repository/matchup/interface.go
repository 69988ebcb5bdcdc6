// File: database/repository/matchup/interface.go
package matchupRepo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"gymbuddy/database"
	"gymbuddy/models"
)

// ErrNotFound is returned when no proposal or session matches a lookup.
var ErrNotFound = errors.New("matchup record not found")

// MatchupRepository persists negotiation state: proposals and the confirmed
// sessions they produce. Callers serialize writes per user pair; the
// repository itself only promises per-operation atomicity.
type MatchupRepository interface {
	CreateProposal(ctx context.Context, p *models.Proposal) error
	GetProposalByID(ctx context.Context, id string) (*models.Proposal, error)
	UpdateProposalStatus(ctx context.Context, id string, status models.ProposalStatus) error
	// ActiveProposalForPair returns the single non-terminal proposal between
	// the two users regardless of direction, or ErrNotFound.
	ActiveProposalForPair(ctx context.Context, userA, userB string) (*models.Proposal, error)
	// ActiveProposalsForUser returns every non-terminal proposal the user is
	// a party to, as proposer or partner.
	ActiveProposalsForUser(ctx context.Context, userID string) ([]models.Proposal, error)
	// PendingCreatedBefore returns pending proposals older than the cutoff,
	// feeding the expiry sweep.
	PendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Proposal, error)
	CountProposalsInThread(ctx context.Context, threadID string) (int, error)

	CreateSession(ctx context.Context, s *models.ConfirmedSession) error
	GetSessionByID(ctx context.Context, id string) (*models.ConfirmedSession, error)
	// SessionForProposal returns the session created from the given proposal,
	// or ErrNotFound. Accept retries use it to avoid double-creating.
	SessionForProposal(ctx context.Context, proposalID string) (*models.ConfirmedSession, error)
	UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) error
	SessionsForUser(ctx context.Context, userID string) ([]models.ConfirmedSession, error)
}

type mongoMatchupRepo struct {
	proposalColl *mongo.Collection
	sessionColl  *mongo.Collection
}

// NewMongoMatchupRepo constructs a MongoDB-backed MatchupRepository.
func NewMongoMatchupRepo() MatchupRepository {
	db := database.MongoClient.Database("gymbuddy")
	return &mongoMatchupRepo{
		proposalColl: db.Collection("proposals"),
		sessionColl:  db.Collection("sessions"),
	}
}
