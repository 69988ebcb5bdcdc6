package matchup

import (
	"context"
	"time"

	matchupRepo "gymbuddy/database/repository/matchup"
	"gymbuddy/models"
	"gymbuddy/services/availability"
	"gymbuddy/services/notification"
)

// RespondResult reports what a partner's decision produced: the proposal in
// its new state, the confirmed session on accept, and the replacement
// proposal on counter.
type RespondResult struct {
	Proposal *models.Proposal         `json:"proposal"`
	Session  *models.ConfirmedSession `json:"session,omitempty"`
	Counter  *models.Proposal         `json:"counter,omitempty"`
}

// MatchupService is the negotiation surface exposed to any presentation
// layer. All business rules live behind these calls; no caller mutates
// proposal or session state directly.
type MatchupService interface {
	GetOverlap(ctx context.Context, userA, userB string) ([]models.OverlapSlot, error)
	GetWeeklyPlans(ctx context.Context, userA, userB string) ([]models.WeeklyPlan, error)
	Suggest(ctx context.Context, proposerID, partnerID string) (*models.Proposal, error)
	Propose(ctx context.Context, proposerID, partnerID string, day models.Day, start, end int) (*models.Proposal, error)
	Respond(ctx context.Context, proposalID, responderID string, decision models.Decision, counterSlot *models.SessionCandidate) (*RespondResult, error)
	Cancel(ctx context.Context, sessionID, requesterID string) error
	Complete(ctx context.Context, sessionID, requesterID string) error
	SessionsFor(ctx context.Context, userID string) ([]models.ConfirmedSession, error)

	// Reconcile re-validates every non-terminal proposal involving the user
	// against the refreshed calendars; invoked on each availability change.
	Reconcile(ctx context.Context, userID string) error
	// ExpireStale expires pending proposals older than the TTL and returns
	// how many it expired; invoked by the background sweep.
	ExpireStale(ctx context.Context) (int, error)
}

// DefaultMatchupService implements MatchupService. Calendar snapshots are
// fetched and notifications emitted outside the pair lock; only proposal
// and session state moves while the lock is held.
type DefaultMatchupService struct {
	Availability availability.AvailabilityService
	Repo         matchupRepo.MatchupRepository
	Notifier     notification.NotificationService

	// ProposalTTL bounds how long a pending proposal waits for a response.
	ProposalTTL time.Duration
	// SessionHours is the standard session length used for suggestions.
	SessionHours int
	// MaxCountersPerThread caps counter chains so a negotiation thread
	// cannot ping-pong forever.
	MaxCountersPerThread int

	locks *pairLocks
	now   func() time.Time
}

// NewDefaultMatchupService wires the coordinator with its collaborators and
// default policy values.
func NewDefaultMatchupService(
	avail availability.AvailabilityService,
	repo matchupRepo.MatchupRepository,
	notifier notification.NotificationService,
) *DefaultMatchupService {
	return &DefaultMatchupService{
		Availability:         avail,
		Repo:                 repo,
		Notifier:             notifier,
		ProposalTTL:          72 * time.Hour,
		SessionHours:         2,
		MaxCountersPerThread: 5,
		locks:                newPairLocks(),
		now:                  time.Now,
	}
}

func (s *DefaultMatchupService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
