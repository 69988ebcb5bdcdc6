package availability

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	availabilityRepo "gymbuddy/database/repository/availability"
	"gymbuddy/models"
	"gymbuddy/utils"
)

// changeChannel is the Redis pub/sub channel carrying availability edits,
// so every instance can reconcile proposals touched by an edit made on
// another instance. Messages carry the publishing instance's id; local
// edits notify synchronously, so an instance skips its own echo.
const changeChannel = "availability:changed"

// changePayload encodes an availability-change message.
func changePayload(instanceID, userID string) string {
	return instanceID + "|" + userID
}

// parseChangePayload splits a change message into its origin instance and
// the edited user. Malformed messages report ok=false and are dropped.
func parseChangePayload(payload string) (origin, userID string, ok bool) {
	return strings.Cut(payload, "|")
}

// ChangeListener is invoked with the owning user's id after every
// availability mutation.
type ChangeListener func(userID string)

// AvailabilityService owns read/write access to users' weekly calendars.
// A user with no stored calendar reads back as empty, which simply yields
// no overlap.
type AvailabilityService interface {
	Get(ctx context.Context, userID string) (models.WeeklyAvailability, error)
	Set(ctx context.Context, userID string, cal models.WeeklyAvailability) error
	OnChange(listener ChangeListener)
}

// DefaultAvailabilityService is the production implementation: Mongo-backed
// storage, a Redis snapshot cache, and synchronous change fan-out. Cache
// may be nil (tests, single-node dev runs); everything degrades to the
// repository.
type DefaultAvailabilityService struct {
	Repo     availabilityRepo.AvailabilityRepository
	Cache    *redis.Client
	CacheTTL time.Duration

	instanceID string

	mu        sync.RWMutex
	listeners []ChangeListener
}

// NewDefaultAvailabilityService wires the service with its repository and
// optional cache client.
func NewDefaultAvailabilityService(repo availabilityRepo.AvailabilityRepository, cache *redis.Client) *DefaultAvailabilityService {
	return &DefaultAvailabilityService{
		Repo:       repo,
		Cache:      cache,
		CacheTTL:   10 * time.Minute,
		instanceID: uuid.New().String(),
	}
}

func cacheKey(userID string) string {
	return "availability:" + userID
}

func (s *DefaultAvailabilityService) Get(ctx context.Context, userID string) (models.WeeklyAvailability, error) {
	if s.Cache != nil {
		if raw, err := s.Cache.Get(ctx, cacheKey(userID)).Result(); err == nil {
			var cal models.WeeklyAvailability
			if err := json.Unmarshal([]byte(raw), &cal); err == nil {
				if cal.Days == nil {
					cal.Days = make(map[models.Day][]models.HourRange)
				}
				return cal, nil
			}
		}
	}

	cal, err := s.Repo.Get(ctx, userID)
	if errors.Is(err, availabilityRepo.ErrNotFound) {
		return models.NewWeeklyAvailability(), nil
	}
	if err != nil {
		return models.WeeklyAvailability{}, err
	}

	if s.Cache != nil {
		if raw, err := json.Marshal(cal); err == nil {
			if err := s.Cache.Set(ctx, cacheKey(userID), raw, s.CacheTTL).Err(); err != nil {
				utils.GetLogger().Warn("failed to cache availability",
					zap.String("userId", userID), zap.Error(err))
			}
		}
	}
	return cal, nil
}

func (s *DefaultAvailabilityService) Set(ctx context.Context, userID string, cal models.WeeklyAvailability) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	// Re-insert every range so the stored calendar is merged and sorted
	// even if the caller sent touching ranges.
	normalized := models.NewWeeklyAvailability()
	for day, ranges := range cal.Days {
		for _, r := range ranges {
			if err := normalized.Add(day, r.Start, r.End); err != nil {
				return err
			}
		}
	}

	if err := s.Repo.Set(ctx, userID, normalized); err != nil {
		return err
	}

	if s.Cache != nil {
		if err := s.Cache.Del(ctx, cacheKey(userID)).Err(); err != nil {
			utils.GetLogger().Warn("failed to invalidate availability cache",
				zap.String("userId", userID), zap.Error(err))
		}
		if err := s.Cache.Publish(ctx, changeChannel, changePayload(s.instanceID, userID)).Err(); err != nil {
			utils.GetLogger().Warn("failed to publish availability change",
				zap.String("userId", userID), zap.Error(err))
		}
	}

	s.notify(userID)
	return nil
}

// OnChange registers a listener invoked synchronously after every local
// mutation and for every remote change received over pub/sub. This is the
// hook that drives proposal reconciliation.
func (s *DefaultAvailabilityService) OnChange(listener ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *DefaultAvailabilityService) notify(userID string) {
	s.mu.RLock()
	listeners := append([]ChangeListener{}, s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l(userID)
	}
}

// StartChangeSubscriber consumes availability-change messages published by
// other instances and replays them into the local listeners. Runs until the
// context is cancelled. No-op without a cache client.
func (s *DefaultAvailabilityService) StartChangeSubscriber(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	sub := s.Cache.Subscribe(ctx, changeChannel)
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				origin, userID, ok := parseChangePayload(msg.Payload)
				if !ok || origin == s.instanceID {
					// Own echo; the local Set already invalidated and notified.
					continue
				}
				// Invalidate before notifying so reconcile reads fresh state.
				if err := s.Cache.Del(ctx, cacheKey(userID)).Err(); err != nil {
					utils.GetLogger().Warn("failed to invalidate availability cache",
						zap.String("userId", userID), zap.Error(err))
				}
				s.notify(userID)
			}
		}
	}()
}
