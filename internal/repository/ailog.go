package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bobotcho/concierge-server-go/internal/model"
)

// AIStats aggregates the metrics bags of recent AI interactions.
type AIStats struct {
	Total        int     `db:"total" json:"total"`
	Errors       int     `db:"errors" json:"errors"`
	Timeouts     int     `db:"timeouts" json:"timeouts"`
	AvgLatencyMS float64 `db:"avg_latency_ms" json:"avgLatencyMs"`
	P95LatencyMS float64 `db:"p95_latency_ms" json:"p95LatencyMs"`
}

type AILogRepository interface {
	Create(ctx context.Context, params model.CreateAILogParams) (*model.AILog, error)
	ListRecent(ctx context.Context, shopID string, limit, offset int) ([]model.AILog, error)
	StatsSince(ctx context.Context, shopID string, since time.Time) (*AIStats, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type aiLogRepo struct {
	db *sqlx.DB
}

func NewAILogRepository(db *sqlx.DB) AILogRepository {
	return &aiLogRepo{db: db}
}

func (r *aiLogRepo) Create(ctx context.Context, params model.CreateAILogParams) (*model.AILog, error) {
	var entry model.AILog
	err := r.db.GetContext(ctx, &entry, `
		INSERT INTO ai_logs
			(shop_id, conversation_id, message_id, input, output, metrics)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.ShopID, params.ConversationID, params.MessageID,
		params.Input, params.Output, params.Metrics)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *aiLogRepo) ListRecent(ctx context.Context, shopID string, limit, offset int) ([]model.AILog, error) {
	var logs []model.AILog
	err := r.db.SelectContext(ctx, &logs, `
		SELECT * FROM ai_logs
		WHERE shop_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, shopID, limit, offset)
	return logs, err
}

func (r *aiLogRepo) StatsSince(ctx context.Context, shopID string, since time.Time) (*AIStats, error) {
	var stats AIStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE metrics->>'error' IS NOT NULL) AS errors,
			COUNT(*) FILTER (WHERE (metrics->>'timeout')::boolean) AS timeouts,
			COALESCE(AVG((metrics->>'latency_ms')::bigint), 0) AS avg_latency_ms,
			COALESCE(PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY (metrics->>'latency_ms')::bigint), 0) AS p95_latency_ms
		FROM ai_logs
		WHERE shop_id = $1 AND created_at >= $2
	`, shopID, since)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *aiLogRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM ai_logs WHERE created_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
