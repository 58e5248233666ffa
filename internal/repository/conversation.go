package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bobotcho/concierge-server-go/internal/model"
)

type ConversationRepository interface {
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	FindActiveByPhone(ctx context.Context, shopID, phone string) (*model.Conversation, error)
	// Upsert returns the active conversation for (shop, phone), creating
	// it when absent and bumping last_message_at when present. The partial
	// unique index on active conversations makes concurrent first-contact
	// messages converge on one row.
	Upsert(ctx context.Context, params model.UpsertConversationParams) (*model.Conversation, error)
	List(ctx context.Context, shopID string, limit, offset int) ([]model.Conversation, error)
	Count(ctx context.Context, shopID string) (int, error)
	CountSince(ctx context.Context, shopID string, since time.Time) (int, error)
	UpdateStatus(ctx context.Context, id string, status model.ConversationStatus) error
	// Touch bumps last_message_at so outbound replies keep the
	// conversation out of the idle-close window.
	Touch(ctx context.Context, id string) error
	CloseIdle(ctx context.Context, before time.Time) (int64, error)
	ActivePhones(ctx context.Context, shopID string, since *time.Time) ([]string, error)
}

type conversationRepo struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) ConversationRepository {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT * FROM conversations WHERE id = $1`, id)
	return HandleNotFound(&conv, err)
}

func (r *conversationRepo) FindActiveByPhone(ctx context.Context, shopID, phone string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `
		SELECT * FROM conversations
		WHERE shop_id = $1 AND customer_phone = $2 AND status = 'active'
	`, shopID, phone)
	return HandleNotFound(&conv, err)
}

func (r *conversationRepo) Upsert(ctx context.Context, params model.UpsertConversationParams) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `
		INSERT INTO conversations (shop_id, customer_phone, status, last_message_at)
		VALUES ($1, $2, 'active', NOW())
		ON CONFLICT (shop_id, customer_phone) WHERE status = 'active' DO UPDATE SET
			last_message_at = NOW()
		RETURNING *
	`, params.ShopID, params.CustomerPhone)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) List(ctx context.Context, shopID string, limit, offset int) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.SelectContext(ctx, &convs, `
		SELECT * FROM conversations
		WHERE shop_id = $1
		ORDER BY last_message_at DESC
		LIMIT $2 OFFSET $3
	`, shopID, limit, offset)
	return convs, err
}

func (r *conversationRepo) Count(ctx context.Context, shopID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM conversations WHERE shop_id = $1
	`, shopID)
	return count, err
}

func (r *conversationRepo) CountSince(ctx context.Context, shopID string, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM conversations WHERE shop_id = $1 AND created_at >= $2
	`, shopID, since)
	return count, err
}

func (r *conversationRepo) Touch(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET last_message_at = NOW() WHERE id = $1
	`, id)
	return err
}

func (r *conversationRepo) UpdateStatus(ctx context.Context, id string, status model.ConversationStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET status = $2 WHERE id = $1
	`, id, status)
	return err
}

func (r *conversationRepo) CloseIdle(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET status = 'closed'
		WHERE status = 'active' AND last_message_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *conversationRepo) ActivePhones(ctx context.Context, shopID string, since *time.Time) ([]string, error) {
	var phones []string
	if since != nil {
		err := r.db.SelectContext(ctx, &phones, `
			SELECT DISTINCT customer_phone FROM conversations
			WHERE shop_id = $1 AND status = 'active' AND last_message_at >= $2
		`, shopID, *since)
		return phones, err
	}
	err := r.db.SelectContext(ctx, &phones, `
		SELECT DISTINCT customer_phone FROM conversations WHERE shop_id = $1
	`, shopID)
	return phones, err
}
