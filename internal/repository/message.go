package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bobotcho/concierge-server-go/internal/model"
)

type MessageRepository interface {
	FindByID(ctx context.Context, id string) (*model.Message, error)
	// FindByProviderSID is the fast-path duplicate check; the unique index
	// on provider_sid remains the authoritative guard on insert.
	FindByProviderSID(ctx context.Context, sid string) (*model.Message, error)
	Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error)
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error)
	CountByConversation(ctx context.Context, conversationID string) (int, error)
	CountSince(ctx context.Context, shopID string, role model.MessageRole, since time.Time) (int, error)
}

type messageRepo struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `SELECT * FROM messages WHERE id = $1`, id)
	return HandleNotFound(&msg, err)
}

func (r *messageRepo) FindByProviderSID(ctx context.Context, sid string) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `
		SELECT * FROM messages WHERE provider_sid = $1
	`, sid)
	return HandleNotFound(&msg, err)
}

func (r *messageRepo) Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO messages
			(conversation_id, shop_id, role, content, provider_sid, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.ConversationID, params.ShopID, params.Role, params.Content,
		params.ProviderSID, params.Metadata)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	return msgs, err
}

func (r *messageRepo) CountByConversation(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM messages WHERE conversation_id = $1
	`, conversationID)
	return count, err
}

func (r *messageRepo) CountSince(ctx context.Context, shopID string, role model.MessageRole, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM messages
		WHERE shop_id = $1 AND role = $2 AND created_at >= $3
	`, shopID, role, since)
	return count, err
}
