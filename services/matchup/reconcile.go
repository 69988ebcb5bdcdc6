package matchup

import (
	"context"
	"errors"

	matchupRepo "gymbuddy/database/repository/matchup"
	"gymbuddy/models"
)

// Reconcile re-validates every non-terminal proposal involving the user
// against the refreshed calendars and expires those whose slot no longer
// lies inside the intersection. It runs on every availability change, so a
// proposal cannot survive the edit that invalidated it. Each pair is
// re-checked under its own lock; a concurrent respond on the same pair is
// therefore strictly before or strictly after the expiry.
func (s *DefaultMatchupService) Reconcile(ctx context.Context, userID string) error {
	proposals, err := s.Repo.ActiveProposalsForUser(ctx, userID)
	if err != nil {
		return err
	}

	// Events for proposals already expired go out even when a later
	// iteration fails, so no party is left believing a stale proposal
	// is live.
	var events []models.MatchEvent
	for _, p := range proposals {
		// Snapshot both calendars before taking the pair lock.
		calA, calB, err := s.snapshots(ctx, p.ProposerID, p.PartnerID)
		if err != nil {
			s.emit(ctx, events...)
			return err
		}
		if slotInsideOverlap(calA, calB, p.Day, p.Start, p.End) {
			continue
		}

		expired, err := s.expireUnderLock(ctx, p.ID, p.ProposerID, p.PartnerID)
		if err != nil {
			s.emit(ctx, events...)
			return err
		}
		if expired {
			events = append(events, expiryEvents(p)...)
		}
	}

	s.emit(ctx, events...)
	return nil
}

// expireUnderLock re-reads the proposal under its pair lock and expires it
// if it is still pending. Reports whether the transition happened.
func (s *DefaultMatchupService) expireUnderLock(ctx context.Context, proposalID, userA, userB string) (bool, error) {
	release := s.locks.acquire(userA, userB)
	defer release()

	cur, err := s.Repo.GetProposalByID(ctx, proposalID)
	if errors.Is(err, matchupRepo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if cur.Status != models.ProposalPending {
		return false, nil
	}
	if err := s.Repo.UpdateProposalStatus(ctx, proposalID, models.ProposalExpired); err != nil {
		return false, err
	}
	return true, nil
}

// expiryEvents notifies both parties, so neither is left believing a stale
// proposal is live.
func expiryEvents(p models.Proposal) []models.MatchEvent {
	return []models.MatchEvent{
		{Type: models.EventProposalExpired, RecipientID: p.ProposerID, ProposalID: p.ID, Day: p.Day, Start: p.Start, End: p.End},
		{Type: models.EventProposalExpired, RecipientID: p.PartnerID, ProposalID: p.ID, Day: p.Day, Start: p.Start, End: p.End},
	}
}
