package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/ai"
	"github.com/bobotcho/concierge-server-go/internal/model"
	"github.com/bobotcho/concierge-server-go/internal/repository"
)

type AILogService struct {
	repo repository.AILogRepository
}

func NewAILogService(repo repository.AILogRepository) *AILogService {
	return &AILogService{repo: repo}
}

// Record writes one audit row per dispatch attempt, success or failure.
// Failures here must not fail the webhook, so callers only log the error.
func (s *AILogService) Record(ctx context.Context, shopID, conversationID string, messageID *string, input string, result ai.Result) error {
	metrics := model.AIMetrics{
		LatencyMS: result.Latency.Milliseconds(),
		Timeout:   result.Timeout,
		Provider:  result.Provider,
	}
	if result.Err != nil {
		errText := result.Err.Error()
		metrics.Error = &errText
	}

	_, err := s.repo.Create(ctx, model.CreateAILogParams{
		ShopID:         shopID,
		ConversationID: conversationID,
		MessageID:      messageID,
		Input:          input,
		Output:         result.Output,
		Metrics:        metrics,
	})
	if err != nil {
		return fmt.Errorf("record ai log: %w", err)
	}
	return nil
}

func (s *AILogService) ListRecent(ctx context.Context, shopID string, limit, offset int) ([]model.AILog, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.repo.ListRecent(ctx, shopID, limit, offset)
}

func (s *AILogService) StatsSince(ctx context.Context, shopID string, since time.Time) (*repository.AIStats, error) {
	return s.repo.StatsSince(ctx, shopID, since)
}

// Prune deletes audit rows older than the retention window.
func (s *AILogService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	n, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune ai logs: %w", err)
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("ai logs pruned")
	}
	return n, nil
}
