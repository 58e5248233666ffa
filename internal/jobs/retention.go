package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/repository"
)

// RetentionJob closes idle conversations and prunes expired AI audit rows
// on a fixed interval.
type RetentionJob struct {
	conversationRepo repository.ConversationRepository
	aiLogRepo        repository.AILogRepository
	idleWindow       time.Duration
	aiLogRetention   time.Duration
	interval         time.Duration
	done             chan struct{}
}

func NewRetentionJob(
	conversationRepo repository.ConversationRepository,
	aiLogRepo repository.AILogRepository,
	idleWindow time.Duration,
	aiLogRetention time.Duration,
	interval time.Duration,
) *RetentionJob {
	return &RetentionJob{
		conversationRepo: conversationRepo,
		aiLogRepo:        aiLogRepo,
		idleWindow:       idleWindow,
		aiLogRetention:   aiLogRetention,
		interval:         interval,
		done:             make(chan struct{}),
	}
}

func (j *RetentionJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("retention job started")
}

func (j *RetentionJob) Stop() {
	close(j.done)
	log.Info().Msg("retention job stopped")
}

func (j *RetentionJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *RetentionJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runStep(ctx, "idle conversations", func(ctx context.Context) (int64, error) {
		return j.conversationRepo.CloseIdle(ctx, time.Now().Add(-j.idleWindow))
	})
	j.runStep(ctx, "ai logs", func(ctx context.Context) (int64, error) {
		return j.aiLogRepo.DeleteOlderThan(ctx, time.Now().Add(-j.aiLogRetention))
	})
}

func (j *RetentionJob) runStep(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to sweep %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("swept %s", name)
	}
}
