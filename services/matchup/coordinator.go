package matchup

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	matchupRepo "gymbuddy/database/repository/matchup"
	"gymbuddy/models"
	"gymbuddy/services/overlap"
	"gymbuddy/services/planner"
	"gymbuddy/utils"
)

// GetOverlap returns the pair's shared availability slots from the current
// calendar snapshots.
func (s *DefaultMatchupService) GetOverlap(ctx context.Context, userA, userB string) ([]models.OverlapSlot, error) {
	calA, calB, err := s.snapshots(ctx, userA, userB)
	if err != nil {
		return nil, err
	}
	return overlap.Intersect(calA, calB), nil
}

// GetWeeklyPlans returns the ranked two-session weekly plans for the pair.
func (s *DefaultMatchupService) GetWeeklyPlans(ctx context.Context, userA, userB string) ([]models.WeeklyPlan, error) {
	slots, err := s.GetOverlap(ctx, userA, userB)
	if err != nil {
		return nil, err
	}
	return planner.Plans(planner.Candidates(slots, s.SessionHours)), nil
}

// Suggest proposes the best ranked plan's earlier session on the proposer's
// behalf. With no viable plan it returns an UnavailableError.
func (s *DefaultMatchupService) Suggest(ctx context.Context, proposerID, partnerID string) (*models.Proposal, error) {
	plans, err := s.GetWeeklyPlans(ctx, proposerID, partnerID)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, &UnavailableError{Reason: "no weekly plan fits the pair's shared availability"}
	}
	best := plans[0].First
	return s.Propose(ctx, proposerID, partnerID, best.Day, best.Start, best.End)
}

// Propose creates a pending proposal for one specific session. The slot
// must lie inside the pair's current availability intersection and the pair
// must have no other active proposal.
func (s *DefaultMatchupService) Propose(ctx context.Context, proposerID, partnerID string, day models.Day, start, end int) (*models.Proposal, error) {
	if proposerID == "" || partnerID == "" || proposerID == partnerID {
		return nil, &InvalidSlotError{Reason: "proposer and partner must be two distinct users"}
	}
	if err := validateSlot(day, start, end); err != nil {
		return nil, err
	}

	// Calendar snapshots are read before the pair lock; the lock never
	// spans availability or notification I/O.
	calA, calB, err := s.snapshots(ctx, proposerID, partnerID)
	if err != nil {
		return nil, err
	}
	if !slotInsideOverlap(calA, calB, day, start, end) {
		return nil, &UnavailableError{Day: day, Start: start, End: end}
	}

	p := &models.Proposal{
		ID:         uuid.New().String(),
		ProposerID: proposerID,
		PartnerID:  partnerID,
		Day:        day,
		Start:      start,
		End:        end,
		Status:     models.ProposalPending,
		CreatedAt:  s.clock(),
		ThreadID:   uuid.New().String(),
	}

	err = func() error {
		release := s.locks.acquire(proposerID, partnerID)
		defer release()

		active, err := s.Repo.ActiveProposalForPair(ctx, proposerID, partnerID)
		if err == nil {
			return &ConflictError{UserA: proposerID, UserB: partnerID, ProposalID: active.ID}
		}
		if !errors.Is(err, matchupRepo.ErrNotFound) {
			return err
		}
		return s.Repo.CreateProposal(ctx, p)
	}()
	if err != nil {
		return nil, err
	}

	s.emit(ctx, models.MatchEvent{
		Type:        models.EventProposalCreated,
		RecipientID: partnerID,
		ActorID:     proposerID,
		ProposalID:  p.ID,
		Day:         day,
		Start:       start,
		End:         end,
	})
	return p, nil
}

// Respond applies the partner's decision to a pending proposal. Accepting
// is binding: the proposal confirms and the session is created in the same
// critical section. A retried accept resumes where a failed one stopped, so
// a write failure mid-transition never wedges the pair.
func (s *DefaultMatchupService) Respond(ctx context.Context, proposalID, responderID string, decision models.Decision, counterSlot *models.SessionCandidate) (*RespondResult, error) {
	p, err := s.Repo.GetProposalByID(ctx, proposalID)
	if errors.Is(err, matchupRepo.ErrNotFound) {
		return nil, &NotFoundError{Kind: "proposal", ID: proposalID}
	}
	if err != nil {
		return nil, err
	}

	var calA, calB models.WeeklyAvailability
	if decision == models.DecisionCounter {
		if counterSlot == nil {
			return nil, &InvalidSlotError{Reason: "counter decision requires a counter slot"}
		}
		if err := validateSlot(counterSlot.Day, counterSlot.Start, counterSlot.End); err != nil {
			return nil, err
		}
		if calA, calB, err = s.snapshots(ctx, p.ProposerID, p.PartnerID); err != nil {
			return nil, err
		}
	}

	result := &RespondResult{}
	var events []models.MatchEvent
	err = func() error {
		release := s.locks.acquire(p.ProposerID, p.PartnerID)
		defer release()

		// Re-read under the lock: a concurrent reconcile or sweep may have
		// already expired the proposal.
		cur, err := s.Repo.GetProposalByID(ctx, proposalID)
		if errors.Is(err, matchupRepo.ErrNotFound) {
			return &NotFoundError{Kind: "proposal", ID: proposalID}
		}
		if err != nil {
			return err
		}
		// A failed accept can leave the proposal accepted without its
		// session; only the partner's retried accept may resume that
		// transition.
		resuming := cur.Status == models.ProposalAccepted && decision == models.DecisionAccept
		if cur.Status != models.ProposalPending && !resuming {
			return &NotFoundError{Kind: "proposal", ID: proposalID}
		}
		if cur.PartnerID != responderID {
			return &NotAuthorizedError{UserID: responderID, Operation: "respond to proposal " + proposalID}
		}

		switch decision {
		case models.DecisionAccept:
			if cur.Status == models.ProposalPending {
				if err := s.Repo.UpdateProposalStatus(ctx, cur.ID, models.ProposalAccepted); err != nil {
					return err
				}
			}
			// The session may already exist if an earlier accept failed
			// between creating it and confirming the proposal.
			sess, err := s.Repo.SessionForProposal(ctx, cur.ID)
			if errors.Is(err, matchupRepo.ErrNotFound) {
				sess = &models.ConfirmedSession{
					ID:           uuid.New().String(),
					Participants: [2]string{cur.ProposerID, cur.PartnerID},
					Day:          cur.Day,
					Start:        cur.Start,
					End:          cur.End,
					Status:       models.SessionConfirmed,
					ProposalID:   cur.ID,
					CreatedAt:    s.clock(),
				}
				if err := s.Repo.CreateSession(ctx, sess); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
			if err := s.Repo.UpdateProposalStatus(ctx, cur.ID, models.ProposalConfirmed); err != nil {
				return err
			}
			cur.Status = models.ProposalConfirmed
			result.Proposal = cur
			result.Session = sess
			events = append(events,
				models.MatchEvent{Type: models.EventProposalAccepted, RecipientID: cur.ProposerID, ActorID: responderID, ProposalID: cur.ID},
				models.MatchEvent{Type: models.EventSessionConfirmed, RecipientID: cur.ProposerID, ActorID: responderID, SessionID: sess.ID, Day: sess.Day, Start: sess.Start, End: sess.End},
				models.MatchEvent{Type: models.EventSessionConfirmed, RecipientID: cur.PartnerID, ActorID: responderID, SessionID: sess.ID, Day: sess.Day, Start: sess.Start, End: sess.End},
			)

		case models.DecisionReject:
			if err := s.Repo.UpdateProposalStatus(ctx, cur.ID, models.ProposalRejected); err != nil {
				return err
			}
			cur.Status = models.ProposalRejected
			result.Proposal = cur
			events = append(events, models.MatchEvent{
				Type: models.EventProposalRejected, RecipientID: cur.ProposerID, ActorID: responderID, ProposalID: cur.ID,
			})

		case models.DecisionCounter:
			if !slotInsideOverlap(calA, calB, counterSlot.Day, counterSlot.Start, counterSlot.End) {
				return &UnavailableError{Day: counterSlot.Day, Start: counterSlot.Start, End: counterSlot.End}
			}
			n, err := s.Repo.CountProposalsInThread(ctx, cur.ThreadID)
			if err != nil {
				return err
			}
			// n includes the thread's original proposal.
			if n-1 >= s.MaxCountersPerThread {
				return &ConflictError{
					UserA: cur.ProposerID, UserB: cur.PartnerID,
					Reason: fmt.Sprintf("negotiation thread %s reached its limit of %d counter proposals", cur.ThreadID, s.MaxCountersPerThread),
				}
			}
			if err := s.Repo.UpdateProposalStatus(ctx, cur.ID, models.ProposalCounterProposed); err != nil {
				return err
			}
			cur.Status = models.ProposalCounterProposed
			linked := &models.Proposal{
				ID:         uuid.New().String(),
				ProposerID: cur.PartnerID,
				PartnerID:  cur.ProposerID,
				Day:        counterSlot.Day,
				Start:      counterSlot.Start,
				End:        counterSlot.End,
				Status:     models.ProposalPending,
				CreatedAt:  s.clock(),
				ThreadID:   cur.ThreadID,
			}
			if err := s.Repo.CreateProposal(ctx, linked); err != nil {
				return err
			}
			result.Proposal = cur
			result.Counter = linked
			events = append(events, models.MatchEvent{
				Type: models.EventProposalCountered, RecipientID: cur.ProposerID, ActorID: responderID,
				ProposalID: linked.ID, Day: linked.Day, Start: linked.Start, End: linked.End,
			})

		default:
			return &InvalidSlotError{Reason: fmt.Sprintf("unknown decision %q", decision)}
		}
		return nil
	}()
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events...)
	return result, nil
}

// Cancel moves a confirmed session to cancelled. Only a participant may
// cancel; the transition is synchronous and immediate.
func (s *DefaultMatchupService) Cancel(ctx context.Context, sessionID, requesterID string) error {
	return s.closeSession(ctx, sessionID, requesterID, models.SessionCancelled, models.EventSessionCancelled)
}

// Complete marks a confirmed session as done. Only a participant may do so.
func (s *DefaultMatchupService) Complete(ctx context.Context, sessionID, requesterID string) error {
	return s.closeSession(ctx, sessionID, requesterID, models.SessionCompleted, models.EventSessionCompleted)
}

func (s *DefaultMatchupService) closeSession(ctx context.Context, sessionID, requesterID string, status models.SessionStatus, eventType models.EventType) error {
	sess, err := s.Repo.GetSessionByID(ctx, sessionID)
	if errors.Is(err, matchupRepo.ErrNotFound) {
		return &NotFoundError{Kind: "session", ID: sessionID}
	}
	if err != nil {
		return err
	}
	if !sess.HasParticipant(requesterID) {
		return &NotAuthorizedError{UserID: requesterID, Operation: "close session " + sessionID}
	}

	other := sess.OtherParticipant(requesterID)
	err = func() error {
		release := s.locks.acquire(sess.Participants[0], sess.Participants[1])
		defer release()

		cur, err := s.Repo.GetSessionByID(ctx, sessionID)
		if errors.Is(err, matchupRepo.ErrNotFound) {
			return &NotFoundError{Kind: "session", ID: sessionID}
		}
		if err != nil {
			return err
		}
		if cur.Status != models.SessionConfirmed {
			return &NotFoundError{Kind: "session", ID: sessionID}
		}
		return s.Repo.UpdateSessionStatus(ctx, sessionID, status)
	}()
	if err != nil {
		return err
	}

	s.emit(ctx, models.MatchEvent{
		Type:        eventType,
		RecipientID: other,
		ActorID:     requesterID,
		SessionID:   sessionID,
		Day:         sess.Day,
		Start:       sess.Start,
		End:         sess.End,
	})
	return nil
}

// SessionsFor lists the user's confirmed, cancelled and completed sessions.
func (s *DefaultMatchupService) SessionsFor(ctx context.Context, userID string) ([]models.ConfirmedSession, error) {
	return s.Repo.SessionsForUser(ctx, userID)
}

func (s *DefaultMatchupService) snapshots(ctx context.Context, userA, userB string) (models.WeeklyAvailability, models.WeeklyAvailability, error) {
	calA, err := s.Availability.Get(ctx, userA)
	if err != nil {
		return models.WeeklyAvailability{}, models.WeeklyAvailability{}, err
	}
	calB, err := s.Availability.Get(ctx, userB)
	if err != nil {
		return models.WeeklyAvailability{}, models.WeeklyAvailability{}, err
	}
	return calA, calB, nil
}

func (s *DefaultMatchupService) emit(ctx context.Context, events ...models.MatchEvent) {
	for _, ev := range events {
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = s.clock()
		}
		if err := s.Notifier.Emit(ctx, ev); err != nil {
			utils.GetLogger().Warn("failed to emit match event",
				zap.String("type", string(ev.Type)),
				zap.String("recipientId", ev.RecipientID),
				zap.Error(err))
		}
	}
}

func validateSlot(day models.Day, start, end int) error {
	if !day.Valid() {
		return &InvalidSlotError{Reason: fmt.Sprintf("unknown day %q", day)}
	}
	r := models.HourRange{Start: start, End: end}
	if !r.Valid() {
		return &InvalidSlotError{Reason: fmt.Sprintf("hour range [%d, %d) is malformed", start, end)}
	}
	return nil
}

// slotInsideOverlap reports whether [start, end) on day lies fully inside
// the intersection of the two calendars.
func slotInsideOverlap(calA, calB models.WeeklyAvailability, day models.Day, start, end int) bool {
	for _, slot := range overlap.Intersect(calA, calB) {
		if slot.Day == day && start >= slot.Start && end <= slot.End {
			return true
		}
	}
	return false
}
