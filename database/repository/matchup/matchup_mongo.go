// File: database/repository/matchup/matchup_mongo.go
package matchupRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"gymbuddy/models"
)

var nonTerminalStatuses = []models.ProposalStatus{
	models.ProposalPending,
	models.ProposalAccepted,
}

func (r *mongoMatchupRepo) CreateProposal(ctx context.Context, p *models.Proposal) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := r.proposalColl.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("error creating proposal: %w", err)
	}
	return nil
}

func (r *mongoMatchupRepo) GetProposalByID(ctx context.Context, id string) (*models.Proposal, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p models.Proposal
	err := r.proposalColl.FindOne(ctx, bson.M{"id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching proposal %s: %w", id, err)
	}
	return &p, nil
}

func (r *mongoMatchupRepo) UpdateProposalStatus(ctx context.Context, id string, status models.ProposalStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.proposalColl.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return fmt.Errorf("error updating proposal %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoMatchupRepo) ActiveProposalForPair(ctx context.Context, userA, userB string) (*models.Proposal, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"status": bson.M{"$in": nonTerminalStatuses},
		"$or": []bson.M{
			{"proposerId": userA, "partnerId": userB},
			{"proposerId": userB, "partnerId": userA},
		},
	}
	var p models.Proposal
	err := r.proposalColl.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching active proposal for pair (%s, %s): %w", userA, userB, err)
	}
	return &p, nil
}

func (r *mongoMatchupRepo) ActiveProposalsForUser(ctx context.Context, userID string) ([]models.Proposal, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"status": bson.M{"$in": nonTerminalStatuses},
		"$or": []bson.M{
			{"proposerId": userID},
			{"partnerId": userID},
		},
	}
	cursor, err := r.proposalColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error fetching active proposals for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var proposals []models.Proposal
	if err := cursor.All(ctx, &proposals); err != nil {
		return nil, err
	}
	return proposals, nil
}

func (r *mongoMatchupRepo) PendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Proposal, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"status":    models.ProposalPending,
		"createdAt": bson.M{"$lt": cutoff},
	}
	cursor, err := r.proposalColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error fetching stale pending proposals: %w", err)
	}
	defer cursor.Close(ctx)

	var proposals []models.Proposal
	if err := cursor.All(ctx, &proposals); err != nil {
		return nil, err
	}
	return proposals, nil
}

func (r *mongoMatchupRepo) CountProposalsInThread(ctx context.Context, threadID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := r.proposalColl.CountDocuments(ctx, bson.M{"threadId": threadID})
	if err != nil {
		return 0, fmt.Errorf("error counting proposals in thread %s: %w", threadID, err)
	}
	return int(n), nil
}

func (r *mongoMatchupRepo) CreateSession(ctx context.Context, s *models.ConfirmedSession) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := r.sessionColl.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}
	return nil
}

func (r *mongoMatchupRepo) GetSessionByID(ctx context.Context, id string) (*models.ConfirmedSession, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s models.ConfirmedSession
	err := r.sessionColl.FindOne(ctx, bson.M{"id": id}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching session %s: %w", id, err)
	}
	return &s, nil
}

func (r *mongoMatchupRepo) SessionForProposal(ctx context.Context, proposalID string) (*models.ConfirmedSession, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s models.ConfirmedSession
	err := r.sessionColl.FindOne(ctx, bson.M{"proposalId": proposalID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching session for proposal %s: %w", proposalID, err)
	}
	return &s, nil
}

func (r *mongoMatchupRepo) UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.sessionColl.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return fmt.Errorf("error updating session %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoMatchupRepo) SessionsForUser(ctx context.Context, userID string) ([]models.ConfirmedSession, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.sessionColl.Find(ctx, bson.M{"participants": userID})
	if err != nil {
		return nil, fmt.Errorf("error fetching sessions for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var sessions []models.ConfirmedSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
