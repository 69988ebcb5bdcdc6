// File: database/repository/matchup/memory.go
package matchupRepo

import (
	"context"
	"sync"
	"time"

	"gymbuddy/models"
)

// memoryMatchupRepo keeps negotiation state in maps; used by tests and by
// single-node setups that run without Mongo.
type memoryMatchupRepo struct {
	mu        sync.RWMutex
	proposals map[string]models.Proposal
	sessions  map[string]models.ConfirmedSession
}

// NewMemoryMatchupRepo constructs an in-memory MatchupRepository.
func NewMemoryMatchupRepo() MatchupRepository {
	return &memoryMatchupRepo{
		proposals: make(map[string]models.Proposal),
		sessions:  make(map[string]models.ConfirmedSession),
	}
}

func (r *memoryMatchupRepo) CreateProposal(_ context.Context, p *models.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proposals[p.ID] = *p
	return nil
}

func (r *memoryMatchupRepo) GetProposalByID(_ context.Context, id string) (*models.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.proposals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *memoryMatchupRepo) UpdateProposalStatus(_ context.Context, id string, status models.ProposalStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proposals[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	r.proposals[id] = p
	return nil
}

func (r *memoryMatchupRepo) ActiveProposalForPair(_ context.Context, userA, userB string) (*models.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.proposals {
		if p.Status.Terminal() {
			continue
		}
		if (p.ProposerID == userA && p.PartnerID == userB) ||
			(p.ProposerID == userB && p.PartnerID == userA) {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryMatchupRepo) ActiveProposalsForUser(_ context.Context, userID string) ([]models.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Proposal
	for _, p := range r.proposals {
		if !p.Status.Terminal() && p.Involves(userID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryMatchupRepo) PendingCreatedBefore(_ context.Context, cutoff time.Time) ([]models.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Proposal
	for _, p := range r.proposals {
		if p.Status == models.ProposalPending && p.CreatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryMatchupRepo) CountProposalsInThread(_ context.Context, threadID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.proposals {
		if p.ThreadID == threadID {
			n++
		}
	}
	return n, nil
}

func (r *memoryMatchupRepo) CreateSession(_ context.Context, s *models.ConfirmedSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	return nil
}

func (r *memoryMatchupRepo) GetSessionByID(_ context.Context, id string) (*models.ConfirmedSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memoryMatchupRepo) SessionForProposal(_ context.Context, proposalID string) (*models.ConfirmedSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.ProposalID == proposalID {
			cp := s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryMatchupRepo) UpdateSessionStatus(_ context.Context, id string, status models.SessionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	r.sessions[id] = s
	return nil
}

func (r *memoryMatchupRepo) SessionsForUser(_ context.Context, userID string) ([]models.ConfirmedSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.ConfirmedSession
	for _, s := range r.sessions {
		if s.HasParticipant(userID) {
			out = append(out, s)
		}
	}
	return out, nil
}
