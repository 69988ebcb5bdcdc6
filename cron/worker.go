package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"gymbuddy/config"
	"gymbuddy/services/matchup"
)

const TypeExpireSweep = "proposal:expire_sweep"

// InitSweepWorker starts the async worker and scheduler that drive the
// periodic proposal expiry sweep in the background.
func InitSweepWorker(matchupSvc matchup.MatchupService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpireSweep, handleExpireSweep(matchupSvc))

	scheduler := asynq.NewScheduler(redisOpts, nil)
	interval := fmt.Sprintf("@every %s", config.SweepInterval())
	if _, err := scheduler.Register(interval, asynq.NewTask(TypeExpireSweep, nil)); err != nil {
		log.Fatalf("[SweepWorker] failed to register sweep schedule: %v", err)
	}

	// Start the worker with retry logic.
	go func() {
		log.Println("[SweepWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[SweepWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[SweepWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Printf("[SweepWorker] scheduler stopped: %v", err)
		}
	}()
}

func handleExpireSweep(matchupSvc matchup.MatchupService) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := matchupSvc.ExpireStale(ctx)
		if err != nil {
			log.Printf("[SweepWorker] expiry sweep failed: %v", err)
			return err
		}
		if n > 0 {
			log.Printf("[SweepWorker] expired %d stale proposals", n)
		}
		return nil
	}
}
