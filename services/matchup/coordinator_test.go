package matchup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	availabilityRepo "gymbuddy/database/repository/availability"
	matchupRepo "gymbuddy/database/repository/matchup"
	notificationRepo "gymbuddy/database/repository/notification"
	"gymbuddy/models"
	"gymbuddy/services/availability"
	"gymbuddy/services/notification"
)

type fixture struct {
	svc   *DefaultMatchupService
	avail *availability.DefaultAvailabilityService
	repo  matchupRepo.MatchupRepository
	sink  *notification.ChannelSink
}

// newFixture assembles the service the way main does, on memory repos: a
// real availability service (no cache), a real notification service with a
// channel sink, and the change hook wired to Reconcile.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := newFixtureWithRepo(t, matchupRepo.NewMemoryMatchupRepo())
	f.avail.OnChange(func(userID string) {
		if err := f.svc.Reconcile(context.Background(), userID); err != nil {
			t.Errorf("reconcile(%s): %v", userID, err)
		}
	})
	return f
}

// newFixtureWithRepo builds the fixture over the given repository and leaves
// the reconcile hook unwired, so injected repository faults stay confined to
// the call under test.
func newFixtureWithRepo(t *testing.T, repo matchupRepo.MatchupRepository) *fixture {
	t.Helper()

	sink := notification.NewChannelSink(64)
	notifier, err := notification.NewDefaultNotificationService(
		notificationRepo.NewMemoryNotificationRepo(), sink)
	if err != nil {
		t.Fatalf("notification service: %v", err)
	}

	availSvc := availability.NewDefaultAvailabilityService(
		availabilityRepo.NewMemoryAvailabilityRepo(), nil)
	svc := NewDefaultMatchupService(availSvc, repo, notifier)
	return &fixture{svc: svc, avail: availSvc, repo: repo, sink: sink}
}

func (f *fixture) setCalendar(t *testing.T, userID string, ranges map[models.Day][]models.HourRange) {
	t.Helper()
	cal := models.NewWeeklyAvailability()
	for day, rs := range ranges {
		for _, r := range rs {
			if err := cal.Add(day, r.Start, r.End); err != nil {
				t.Fatalf("bad fixture range for %s: %v", userID, err)
			}
		}
	}
	if err := f.avail.Set(context.Background(), userID, cal); err != nil {
		t.Fatalf("set calendar for %s: %v", userID, err)
	}
}

// drainEvents empties the channel sink and returns everything delivered so far.
func (f *fixture) drainEvents() []models.MatchEvent {
	var out []models.MatchEvent
	for {
		select {
		case ev := <-f.sink.C:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func standardPair(t *testing.T, f *fixture) {
	t.Helper()
	f.setCalendar(t, "alice", map[models.Day][]models.HourRange{
		models.Monday:    {{Start: 18, End: 20}},
		models.Wednesday: {{Start: 18, End: 21}},
	})
	f.setCalendar(t, "bob", map[models.Day][]models.HourRange{
		models.Monday:    {{Start: 18, End: 20}},
		models.Wednesday: {{Start: 19, End: 21}},
	})
}

func TestProposeCreatesPendingProposal(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	p, err := f.svc.Propose(ctx, "alice", "bob", models.Wednesday, 19, 21)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if p.Status != models.ProposalPending {
		t.Errorf("status = %s, want pending", p.Status)
	}
	if p.ThreadID == "" || p.ID == "" {
		t.Errorf("proposal missing ids: %+v", p)
	}

	events := f.drainEvents()
	if len(events) != 1 || events[0].Type != models.EventProposalCreated || events[0].RecipientID != "bob" {
		t.Errorf("expected one proposal_created event for bob, got %v", events)
	}
}

func TestProposeRejectsSlotOutsideOverlap(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)

	// Wed 18-21 is alice-only; the shared window starts at 19.
	_, err := f.svc.Propose(context.Background(), "alice", "bob", models.Wednesday, 18, 20)
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
}

func TestProposeRejectsMalformedInput(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	var invalid *InvalidSlotError
	if _, err := f.svc.Propose(ctx, "alice", "alice", models.Monday, 18, 20); !errors.As(err, &invalid) {
		t.Errorf("self-proposal: expected InvalidSlotError, got %v", err)
	}
	if _, err := f.svc.Propose(ctx, "alice", "bob", models.Day("noday"), 18, 20); !errors.As(err, &invalid) {
		t.Errorf("bad day: expected InvalidSlotError, got %v", err)
	}
	if _, err := f.svc.Propose(ctx, "alice", "bob", models.Monday, 20, 18); !errors.As(err, &invalid) {
		t.Errorf("inverted range: expected InvalidSlotError, got %v", err)
	}
}

func TestProposeEnforcesSingleActiveProposalPerPair(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	first, err := f.svc.Propose(ctx, "alice", "bob", models.Monday, 18, 20)
	if err != nil {
		t.Fatalf("first Propose: %v", err)
	}

	// Either direction collides with the live proposal.
	_, err = f.svc.Propose(ctx, "bob", "alice", models.Wednesday, 19, 21)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.ProposalID != first.ID {
		t.Errorf("conflict names proposal %s, want %s", conflict.ProposalID, first.ID)
	}
}

func TestRespondAcceptConfirmsAndCreatesSession(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	p, err := f.svc.Propose(ctx, "alice", "bob", models.Wednesday, 19, 21)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	f.drainEvents()

	res, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionAccept, nil)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Proposal.Status != models.ProposalConfirmed {
		t.Errorf("proposal status = %s, want confirmed", res.Proposal.Status)
	}
	if res.Session == nil {
		t.Fatal("accept produced no session")
	}
	sess := res.Session
	if sess.Day != p.Day || sess.Start != p.Start || sess.End != p.End {
		t.Errorf("session slot %s %d-%d does not match proposal %s %d-%d",
			sess.Day, sess.Start, sess.End, p.Day, p.Start, p.End)
	}
	if !sess.HasParticipant("alice") || !sess.HasParticipant("bob") {
		t.Errorf("session participants wrong: %v", sess.Participants)
	}
	if sess.ProposalID != p.ID {
		t.Errorf("session links proposal %s, want %s", sess.ProposalID, p.ID)
	}

	// Both parties learn about the confirmed session.
	confirmed := map[string]bool{}
	for _, ev := range f.drainEvents() {
		if ev.Type == models.EventSessionConfirmed {
			confirmed[ev.RecipientID] = true
		}
	}
	if !confirmed["alice"] || !confirmed["bob"] {
		t.Errorf("session_confirmed should reach both parties, got %v", confirmed)
	}

	// The pair is free to negotiate again.
	if _, err := f.svc.Propose(ctx, "bob", "alice", models.Monday, 18, 20); err != nil {
		t.Errorf("new proposal after confirmation should succeed: %v", err)
	}
}

func TestRespondRejectTerminatesProposal(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	p, _ := f.svc.Propose(ctx, "alice", "bob", models.Monday, 18, 20)
	res, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionReject, nil)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Proposal.Status != models.ProposalRejected {
		t.Errorf("status = %s, want rejected", res.Proposal.Status)
	}

	// A rejected proposal takes no further decisions.
	var notFound *NotFoundError
	if _, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionAccept, nil); !errors.As(err, &notFound) {
		t.Errorf("respond on terminal proposal: expected NotFoundError, got %v", err)
	}
}

func TestRespondOnlyPartnerMayDecide(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	p, _ := f.svc.Propose(ctx, "alice", "bob", models.Monday, 18, 20)

	var notAuthorized *NotAuthorizedError
	if _, err := f.svc.Respond(ctx, p.ID, "alice", models.DecisionAccept, nil); !errors.As(err, &notAuthorized) {
		t.Errorf("proposer responding: expected NotAuthorizedError, got %v", err)
	}
	if _, err := f.svc.Respond(ctx, p.ID, "mallory", models.DecisionAccept, nil); !errors.As(err, &notAuthorized) {
		t.Errorf("third party responding: expected NotAuthorizedError, got %v", err)
	}
}

func TestRespondCounterLinksSwappedProposal(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	p, _ := f.svc.Propose(ctx, "alice", "bob", models.Monday, 18, 20)
	res, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionCounter,
		&models.SessionCandidate{Day: models.Wednesday, Start: 19, End: 21})
	if err != nil {
		t.Fatalf("Respond counter: %v", err)
	}
	if res.Proposal.Status != models.ProposalCounterProposed {
		t.Errorf("original status = %s, want counter_proposed", res.Proposal.Status)
	}

	c := res.Counter
	if c == nil {
		t.Fatal("counter decision produced no linked proposal")
	}
	if c.ProposerID != "bob" || c.PartnerID != "alice" {
		t.Errorf("counter roles not swapped: proposer=%s partner=%s", c.ProposerID, c.PartnerID)
	}
	if c.ThreadID != p.ThreadID {
		t.Errorf("counter thread %s, want %s", c.ThreadID, p.ThreadID)
	}
	if c.Status != models.ProposalPending {
		t.Errorf("counter status = %s, want pending", c.Status)
	}

	// Alice accepts the counter and the session lands on the countered slot.
	accepted, err := f.svc.Respond(ctx, c.ID, "alice", models.DecisionAccept, nil)
	if err != nil {
		t.Fatalf("accept counter: %v", err)
	}
	if accepted.Session.Day != models.Wednesday || accepted.Session.Start != 19 {
		t.Errorf("session on %s %d, want wed 19", accepted.Session.Day, accepted.Session.Start)
	}
}

func TestRespondCounterRequiresSlotAndAvailability(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	p, _ := f.svc.Propose(ctx, "alice", "bob", models.Monday, 18, 20)

	var invalid *InvalidSlotError
	if _, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionCounter, nil); !errors.As(err, &invalid) {
		t.Errorf("counter without slot: expected InvalidSlotError, got %v", err)
	}

	var unavailable *UnavailableError
	_, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionCounter,
		&models.SessionCandidate{Day: models.Friday, Start: 10, End: 12})
	if !errors.As(err, &unavailable) {
		t.Errorf("counter outside overlap: expected UnavailableError, got %v", err)
	}
}

func TestRespondCounterChainIsCapped(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()
	f.svc.MaxCountersPerThread = 2

	slots := []models.SessionCandidate{
		{Day: models.Wednesday, Start: 19, End: 21},
		{Day: models.Monday, Start: 18, End: 20},
	}
	p, err := f.svc.Propose(ctx, "alice", "bob", models.Monday, 18, 20)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}

	cur := p
	for i := 0; i < f.svc.MaxCountersPerThread; i++ {
		res, err := f.svc.Respond(ctx, cur.ID, cur.PartnerID, models.DecisionCounter, &slots[i%2])
		if err != nil {
			t.Fatalf("counter %d: %v", i+1, err)
		}
		cur = res.Counter
	}

	// One more counter exceeds the thread's budget.
	_, err = f.svc.Respond(ctx, cur.ID, cur.PartnerID, models.DecisionCounter, &slots[0])
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError after %d counters, got %v", f.svc.MaxCountersPerThread, err)
	}

	// Accept and reject still work at the cap.
	if _, err := f.svc.Respond(ctx, cur.ID, cur.PartnerID, models.DecisionAccept, nil); err != nil {
		t.Errorf("accept at the counter cap should succeed: %v", err)
	}
}

func TestAvailabilityEditExpiresInvalidatedProposal(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	p, err := f.svc.Propose(ctx, "alice", "bob", models.Wednesday, 19, 21)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	f.drainEvents()

	// Bob drops Wednesday entirely; the change hook reconciles his proposals.
	f.setCalendar(t, "bob", map[models.Day][]models.HourRange{
		models.Monday: {{Start: 18, End: 20}},
	})

	cur, err := f.repo.GetProposalByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProposalByID: %v", err)
	}
	if cur.Status != models.ProposalExpired {
		t.Fatalf("status = %s, want expired", cur.Status)
	}

	// Both parties hear about the expiry.
	expired := map[string]bool{}
	for _, ev := range f.drainEvents() {
		if ev.Type == models.EventProposalExpired {
			expired[ev.RecipientID] = true
		}
	}
	if !expired["alice"] || !expired["bob"] {
		t.Errorf("proposal_expired should reach both parties, got %v", expired)
	}

	// A late accept lands on dead state.
	var notFound *NotFoundError
	if _, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionAccept, nil); !errors.As(err, &notFound) {
		t.Errorf("accept after expiry: expected NotFoundError, got %v", err)
	}
}

func TestReconcileKeepsStillValidProposals(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	p, _ := f.svc.Propose(ctx, "alice", "bob", models.Monday, 18, 20)

	// Bob edits Wednesday only; the Monday proposal survives.
	f.setCalendar(t, "bob", map[models.Day][]models.HourRange{
		models.Monday: {{Start: 18, End: 20}},
	})

	cur, err := f.repo.GetProposalByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProposalByID: %v", err)
	}
	if cur.Status != models.ProposalPending {
		t.Errorf("status = %s, want pending", cur.Status)
	}
}

func TestSuggestProposesBestPlanSlot(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	// The only plan is Mon 18-20 + Wed 19-21; Suggest proposes its earlier
	// session.
	p, err := f.svc.Suggest(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if p.Day != models.Monday || p.Start != 18 || p.End != 20 {
		t.Errorf("suggested %s %d-%d, want mon 18-20", p.Day, p.Start, p.End)
	}
}

func TestSuggestWithoutViablePlan(t *testing.T) {
	f := newFixture(t)
	f.setCalendar(t, "alice", map[models.Day][]models.HourRange{
		models.Monday: {{Start: 18, End: 20}},
	})
	f.setCalendar(t, "bob", map[models.Day][]models.HourRange{
		models.Tuesday: {{Start: 18, End: 20}},
	})

	_, err := f.svc.Suggest(context.Background(), "alice", "bob")
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
}

func TestCancelAndCompleteSession(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	confirm := func(t *testing.T, day models.Day, start, end int) *models.ConfirmedSession {
		t.Helper()
		p, err := f.svc.Propose(ctx, "alice", "bob", day, start, end)
		if err != nil {
			t.Fatalf("Propose: %v", err)
		}
		res, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionAccept, nil)
		if err != nil {
			t.Fatalf("Respond: %v", err)
		}
		return res.Session
	}

	t.Run("participant cancels", func(t *testing.T) {
		sess := confirm(t, models.Monday, 18, 20)
		if err := f.svc.Cancel(ctx, sess.ID, "alice"); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		cur, _ := f.repo.GetSessionByID(ctx, sess.ID)
		if cur.Status != models.SessionCancelled {
			t.Errorf("status = %s, want cancelled", cur.Status)
		}
		// Cancelling twice hits dead state.
		var notFound *NotFoundError
		if err := f.svc.Cancel(ctx, sess.ID, "bob"); !errors.As(err, &notFound) {
			t.Errorf("second cancel: expected NotFoundError, got %v", err)
		}
	})

	t.Run("participant completes", func(t *testing.T) {
		sess := confirm(t, models.Wednesday, 19, 21)
		if err := f.svc.Complete(ctx, sess.ID, "bob"); err != nil {
			t.Fatalf("Complete: %v", err)
		}
		cur, _ := f.repo.GetSessionByID(ctx, sess.ID)
		if cur.Status != models.SessionCompleted {
			t.Errorf("status = %s, want completed", cur.Status)
		}
	})

	t.Run("outsider is refused", func(t *testing.T) {
		sess := confirm(t, models.Monday, 18, 20)
		var notAuthorized *NotAuthorizedError
		if err := f.svc.Cancel(ctx, sess.ID, "mallory"); !errors.As(err, &notAuthorized) {
			t.Errorf("expected NotAuthorizedError, got %v", err)
		}
	})
}

func TestSessionsForListsParticipantSessions(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	p, _ := f.svc.Propose(ctx, "alice", "bob", models.Monday, 18, 20)
	res, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionAccept, nil)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	for _, user := range []string{"alice", "bob"} {
		sessions, err := f.svc.SessionsFor(ctx, user)
		if err != nil {
			t.Fatalf("SessionsFor(%s): %v", user, err)
		}
		if len(sessions) != 1 || sessions[0].ID != res.Session.ID {
			t.Errorf("SessionsFor(%s) = %v, want the one confirmed session", user, sessions)
		}
	}

	sessions, err := f.svc.SessionsFor(ctx, "mallory")
	if err != nil {
		t.Fatalf("SessionsFor(mallory): %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("outsider should see no sessions, got %v", sessions)
	}
}

func TestExpireStaleRespectsTTL(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }
	f.svc.ProposalTTL = 72 * time.Hour

	p, err := f.svc.Propose(ctx, "alice", "bob", models.Monday, 18, 20)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}

	// Inside the TTL nothing expires.
	f.svc.now = func() time.Time { return base.Add(71 * time.Hour) }
	n, err := f.svc.ExpireStale(ctx)
	if err != nil || n != 0 {
		t.Fatalf("ExpireStale inside TTL: n=%d err=%v", n, err)
	}

	// Past the TTL the proposal goes.
	f.svc.now = func() time.Time { return base.Add(73 * time.Hour) }
	n, err = f.svc.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d proposals, want 1", n)
	}
	cur, _ := f.repo.GetProposalByID(ctx, p.ID)
	if cur.Status != models.ProposalExpired {
		t.Errorf("status = %s, want expired", cur.Status)
	}

	// The sweep is idempotent.
	if n, _ := f.svc.ExpireStale(ctx); n != 0 {
		t.Errorf("second sweep expired %d, want 0", n)
	}
}

var errStoreDown = errors.New("store unavailable")

// sessionCreateFaults fails the first n CreateSession calls.
type sessionCreateFaults struct {
	matchupRepo.MatchupRepository
	n int
}

func (r *sessionCreateFaults) CreateSession(ctx context.Context, s *models.ConfirmedSession) error {
	if r.n > 0 {
		r.n--
		return errStoreDown
	}
	return r.MatchupRepository.CreateSession(ctx, s)
}

// confirmFaults fails the first n proposal transitions to confirmed.
type confirmFaults struct {
	matchupRepo.MatchupRepository
	n int
}

func (r *confirmFaults) UpdateProposalStatus(ctx context.Context, id string, status models.ProposalStatus) error {
	if status == models.ProposalConfirmed && r.n > 0 {
		r.n--
		return errStoreDown
	}
	return r.MatchupRepository.UpdateProposalStatus(ctx, id, status)
}

// expiryFaults allows the first n proposal transitions to expired, then fails.
type expiryFaults struct {
	matchupRepo.MatchupRepository
	allowed int
}

func (r *expiryFaults) UpdateProposalStatus(ctx context.Context, id string, status models.ProposalStatus) error {
	if status == models.ProposalExpired {
		if r.allowed <= 0 {
			return errStoreDown
		}
		r.allowed--
	}
	return r.MatchupRepository.UpdateProposalStatus(ctx, id, status)
}

func TestRespondAcceptResumesAfterSessionWriteFailure(t *testing.T) {
	repo := &sessionCreateFaults{MatchupRepository: matchupRepo.NewMemoryMatchupRepo(), n: 1}
	f := newFixtureWithRepo(t, repo)
	standardPair(t, f)
	ctx := context.Background()

	p, err := f.svc.Propose(ctx, "alice", "bob", models.Monday, 18, 20)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if _, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionAccept, nil); !errors.Is(err, errStoreDown) {
		t.Fatalf("first accept: got %v, want the session write failure", err)
	}

	cur, err := f.repo.GetProposalByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProposalByID: %v", err)
	}
	if cur.Status != models.ProposalAccepted {
		t.Fatalf("status after failed accept = %s, want accepted", cur.Status)
	}

	// The stranded proposal only moves through the partner's retried accept.
	var notAuthorized *NotAuthorizedError
	if _, err := f.svc.Respond(ctx, p.ID, "alice", models.DecisionAccept, nil); !errors.As(err, &notAuthorized) {
		t.Errorf("proposer retrying: expected NotAuthorizedError, got %v", err)
	}
	var notFound *NotFoundError
	if _, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionReject, nil); !errors.As(err, &notFound) {
		t.Errorf("reject after accept: expected NotFoundError, got %v", err)
	}

	res, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionAccept, nil)
	if err != nil {
		t.Fatalf("retried accept: %v", err)
	}
	if res.Proposal.Status != models.ProposalConfirmed || res.Session == nil {
		t.Fatalf("retried accept did not finish the transition: %+v", res)
	}
	if res.Session.Day != p.Day || res.Session.Start != p.Start || res.Session.End != p.End {
		t.Errorf("session slot %s %d-%d does not match proposal", res.Session.Day, res.Session.Start, res.Session.End)
	}

	sessions, err := f.svc.SessionsFor(ctx, "alice")
	if err != nil {
		t.Fatalf("SessionsFor: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want exactly 1", len(sessions))
	}

	// The pair is free to negotiate again.
	if _, err := f.svc.Propose(ctx, "bob", "alice", models.Wednesday, 19, 21); err != nil {
		t.Errorf("new proposal after recovery should succeed: %v", err)
	}
}

func TestRespondAcceptResumesAfterConfirmFailure(t *testing.T) {
	repo := &confirmFaults{MatchupRepository: matchupRepo.NewMemoryMatchupRepo(), n: 1}
	f := newFixtureWithRepo(t, repo)
	standardPair(t, f)
	ctx := context.Background()

	p, err := f.svc.Propose(ctx, "alice", "bob", models.Wednesday, 19, 21)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if _, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionAccept, nil); !errors.Is(err, errStoreDown) {
		t.Fatalf("first accept: got %v, want the confirm write failure", err)
	}

	// The session was written before the failure; the retry must reuse it
	// instead of creating a second one.
	res, err := f.svc.Respond(ctx, p.ID, "bob", models.DecisionAccept, nil)
	if err != nil {
		t.Fatalf("retried accept: %v", err)
	}
	if res.Proposal.Status != models.ProposalConfirmed {
		t.Errorf("status = %s, want confirmed", res.Proposal.Status)
	}

	sessions, err := f.svc.SessionsFor(ctx, "bob")
	if err != nil {
		t.Fatalf("SessionsFor: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want exactly 1", len(sessions))
	}
	if sessions[0].ID != res.Session.ID || sessions[0].ProposalID != p.ID {
		t.Errorf("retry did not reuse the existing session: %+v vs %+v", sessions[0], res.Session)
	}
}

func TestReconcileEmitsEventsWhenCutShort(t *testing.T) {
	repo := &expiryFaults{MatchupRepository: matchupRepo.NewMemoryMatchupRepo(), allowed: 1}
	f := newFixtureWithRepo(t, repo)
	ctx := context.Background()

	f.setCalendar(t, "alice", map[models.Day][]models.HourRange{
		models.Monday:    {{Start: 18, End: 20}},
		models.Wednesday: {{Start: 19, End: 21}},
	})
	f.setCalendar(t, "bob", map[models.Day][]models.HourRange{
		models.Monday: {{Start: 18, End: 20}},
	})
	f.setCalendar(t, "carol", map[models.Day][]models.HourRange{
		models.Wednesday: {{Start: 19, End: 21}},
	})
	if _, err := f.svc.Propose(ctx, "alice", "bob", models.Monday, 18, 20); err != nil {
		t.Fatalf("Propose alice-bob: %v", err)
	}
	if _, err := f.svc.Propose(ctx, "alice", "carol", models.Wednesday, 19, 21); err != nil {
		t.Fatalf("Propose alice-carol: %v", err)
	}
	f.drainEvents()

	// Clearing alice's calendar invalidates both proposals; the second
	// expiry write fails partway through the loop.
	f.setCalendar(t, "alice", nil)
	if err := f.svc.Reconcile(ctx, "alice"); !errors.Is(err, errStoreDown) {
		t.Fatalf("Reconcile: got %v, want the expiry write failure", err)
	}

	// The proposal expired before the failure still notified both parties.
	var expired []models.MatchEvent
	for _, ev := range f.drainEvents() {
		if ev.Type == models.EventProposalExpired {
			expired = append(expired, ev)
		}
	}
	if len(expired) != 2 {
		t.Fatalf("got %d proposal_expired events, want 2", len(expired))
	}
	if expired[0].ProposalID != expired[1].ProposalID {
		t.Errorf("expiry events name different proposals: %v", expired)
	}
}

func TestExpireStaleEmitsEventsWhenCutShort(t *testing.T) {
	repo := &expiryFaults{MatchupRepository: matchupRepo.NewMemoryMatchupRepo(), allowed: 1}
	f := newFixtureWithRepo(t, repo)
	ctx := context.Background()

	standardPair(t, f)
	f.setCalendar(t, "carol", map[models.Day][]models.HourRange{
		models.Monday: {{Start: 18, End: 20}},
	})
	f.setCalendar(t, "dave", map[models.Day][]models.HourRange{
		models.Monday: {{Start: 18, End: 20}},
	})

	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }
	if _, err := f.svc.Propose(ctx, "alice", "bob", models.Monday, 18, 20); err != nil {
		t.Fatalf("Propose alice-bob: %v", err)
	}
	if _, err := f.svc.Propose(ctx, "carol", "dave", models.Monday, 18, 20); err != nil {
		t.Fatalf("Propose carol-dave: %v", err)
	}
	f.drainEvents()

	f.svc.now = func() time.Time { return base.Add(f.svc.ProposalTTL + time.Hour) }
	n, err := f.svc.ExpireStale(ctx)
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("ExpireStale: got %v, want the expiry write failure", err)
	}
	if n != 1 {
		t.Fatalf("expired %d proposals before failing, want 1", n)
	}

	var expired []models.MatchEvent
	for _, ev := range f.drainEvents() {
		if ev.Type == models.EventProposalExpired {
			expired = append(expired, ev)
		}
	}
	if len(expired) != 2 {
		t.Fatalf("got %d proposal_expired events, want 2", len(expired))
	}
	if expired[0].ProposalID != expired[1].ProposalID {
		t.Errorf("expiry events name different proposals: %v", expired)
	}
}

func TestProposeConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	standardPair(t, f)
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			proposer, partner := "alice", "bob"
			if i%2 == 1 {
				proposer, partner = partner, proposer
			}
			_, errs[i] = f.svc.Propose(ctx, proposer, partner, models.Monday, 18, 20)
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			var conflict *ConflictError
			if !errors.As(err, &conflict) {
				t.Errorf("attempt %d: unexpected error %v", i, err)
			}
		}
	}
	if wins != 1 {
		t.Errorf("%d proposals won, want exactly 1", wins)
	}
}
