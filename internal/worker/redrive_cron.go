package worker

// redrive_cron.go
// Background goroutine that periodically moves dead-lettered notify jobs back
// onto their queue once the back office looks reachable again. Email jobs are
// left in the DLQ for manual inspection — re-sending stale alerts is worse
// than losing them.

import (
	"context"
	"encoding/json"
	"time"

	"tillpos/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	redriveTickInterval = 30 * time.Second
	redriveBatchSize    = 10
)

// RedriveCronConfig holds the dependencies for the redrive goroutine.
type RedriveCronConfig struct {
	RDB *redis.Client
	CB  *infra.CircuitBreaker
}

// StartRedriveCron launches a background goroutine that ticks every 30s and,
// while the circuit breaker is closed, re-enqueues dead-lettered notify jobs.
// It respects the context for graceful shutdown.
func StartRedriveCron(ctx context.Context, cfg RedriveCronConfig) {
	go func() {
		ticker := time.NewTicker(redriveTickInterval)
		defer ticker.Stop()

		log.Info().Msg("redrive_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("redrive_cron: shutting down")
				return
			case <-ticker.C:
				processRedrives(ctx, cfg)
			}
		}
	}()
}

func processRedrives(ctx context.Context, cfg RedriveCronConfig) {
	// If the CB is not fully closed the back office is still suspect —
	// leave the DLQ alone and let live traffic probe it.
	if cfg.CB.State() != infra.CBClosed {
		log.Debug().Msg("redrive_cron: circuit breaker not closed, skipping tick")
		return
	}

	dlqKey := DLQPrefix + QueueNotify
	redriven := 0
	for i := 0; i < redriveBatchSize; i++ {
		raw, err := cfg.RDB.RPop(ctx, dlqKey).Result()
		if err != nil {
			break // empty DLQ or redis unavailable
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Err(err).Msg("redrive_cron: corrupt DLQ entry dropped")
			continue
		}

		job := Job{Type: entry.JobType, Payload: entry.Payload}
		encoded, err := json.Marshal(job)
		if err != nil {
			log.Error().Err(err).Msg("redrive_cron: failed to re-encode job")
			continue
		}
		if err := cfg.RDB.LPush(ctx, QueueNotify, encoded).Err(); err != nil {
			log.Error().Err(err).Msg("redrive_cron: failed to re-enqueue job")
			// Put the entry back so it is not lost.
			_ = cfg.RDB.RPush(ctx, dlqKey, raw).Err()
			return
		}
		redriven++
	}

	if redriven > 0 {
		log.Info().Int("count", redriven).Msg("redrive_cron: notify jobs re-enqueued from DLQ")
	}
}
