package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/database"
	"github.com/bobotcho/concierge-server-go/internal/model"
	"github.com/bobotcho/concierge-server-go/internal/repository"
)

// ErrDuplicateMessage marks an inbound delivery whose provider message id was
// already recorded. Callers acknowledge it without reprocessing.
var ErrDuplicateMessage = errors.New("duplicate provider message id")

const messageProviderSIDConstraint = "messages_provider_sid_key"

type MessageService struct {
	repo repository.MessageRepository
}

func NewMessageService(repo repository.MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

// RecordInbound persists a customer message. The unique constraint on
// provider_sid is the source of truth for deduplication; a violation maps to
// ErrDuplicateMessage rather than surfacing as a database error. A delivery
// without a provider id cannot be deduplicated and is stored with a NULL
// sid, which never collides under the constraint.
func (s *MessageService) RecordInbound(ctx context.Context, conv *model.Conversation, inbound InboundContent) (*model.Message, error) {
	var sid *string
	if inbound.ProviderSID != "" {
		sid = &inbound.ProviderSID
	}
	msg, err := s.repo.Create(ctx, model.CreateMessageParams{
		ConversationID: conv.ID,
		ShopID:         conv.ShopID,
		Role:           model.MessageRoleCustomer,
		Content:        inbound.Body,
		ProviderSID:    sid,
		Metadata: model.MessageMetadata{
			FromRaw: inbound.FromRaw,
			ToRaw:   inbound.ToRaw,
		},
	})
	if err != nil {
		if database.IsUniqueViolation(err, messageProviderSIDConstraint) {
			log.Info().Str("providerSid", inbound.ProviderSID).Msg("duplicate inbound message")
			return nil, ErrDuplicateMessage
		}
		return nil, fmt.Errorf("record inbound message: %w", err)
	}
	return msg, nil
}

// SeenProviderSID reports whether a provider message id is already stored.
// It is a fast path only; RecordInbound remains safe without it.
func (s *MessageService) SeenProviderSID(ctx context.Context, sid string) (bool, error) {
	msg, err := s.repo.FindByProviderSID(ctx, sid)
	if err != nil {
		return false, err
	}
	return msg != nil, nil
}

// RecordOutbound persists an agent or system reply after the provider
// accepted it. providerSID may be empty for workflow-dispatched sends.
func (s *MessageService) RecordOutbound(ctx context.Context, conv *model.Conversation, role model.MessageRole, content, providerSID string) (*model.Message, error) {
	var sid *string
	if providerSID != "" {
		sid = &providerSID
	}
	msg, err := s.repo.Create(ctx, model.CreateMessageParams{
		ConversationID: conv.ID,
		ShopID:         conv.ShopID,
		Role:           role,
		Content:        content,
		ProviderSID:    sid,
	})
	if err != nil {
		return nil, fmt.Errorf("record outbound message: %w", err)
	}
	return msg, nil
}

func (s *MessageService) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	msgs, err := s.repo.ListByConversation(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	total, err := s.repo.CountByConversation(ctx, conversationID)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	return msgs, total, nil
}

// InboundContent is the provider-independent shape of a received message.
type InboundContent struct {
	ProviderSID string
	Body        string
	FromRaw     string
	ToRaw       string
}
