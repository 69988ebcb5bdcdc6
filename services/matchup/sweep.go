package matchup

import (
	"context"

	"go.uber.org/zap"

	"gymbuddy/models"
	"gymbuddy/utils"
)

// ExpireStale expires pending proposals that have waited longer than the
// TTL without a response. The background sweep calls this periodically.
// Every candidate is re-checked under its pair lock, so the sweep cannot
// race a simultaneous respond on the same proposal.
func (s *DefaultMatchupService) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.clock().Add(-s.ProposalTTL)
	stale, err := s.Repo.PendingCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	var events []models.MatchEvent
	for _, p := range stale {
		ok, err := s.expireUnderLock(ctx, p.ID, p.ProposerID, p.PartnerID)
		if err != nil {
			// Proposals expired before the failure still notify.
			s.emit(ctx, events...)
			return expired, err
		}
		if ok {
			expired++
			events = append(events, expiryEvents(p)...)
		}
	}

	if expired > 0 {
		utils.GetLogger().Info("expired stale proposals", zap.Int("count", expired))
	}
	s.emit(ctx, events...)
	return expired, nil
}
