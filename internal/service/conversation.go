package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/model"
	"github.com/bobotcho/concierge-server-go/internal/repository"
	"github.com/bobotcho/concierge-server-go/internal/util"
)

type ConversationService struct {
	repo repository.ConversationRepository
}

func NewConversationService(repo repository.ConversationRepository) *ConversationService {
	return &ConversationService{repo: repo}
}

// NormalizePhone reduces a raw provider address to the bare E.164 number
// used as the conversation key.
func NormalizePhone(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "whatsapp:")
}

// Resolve returns the active conversation for (shop, phone), creating it on
// first contact and bumping last_message_at otherwise. Concurrent first
// contacts converge on one row through the upsert.
func (s *ConversationService) Resolve(ctx context.Context, shopID, phone string) (*model.Conversation, error) {
	conv, err := s.repo.Upsert(ctx, model.UpsertConversationParams{
		ShopID:        shopID,
		CustomerPhone: NormalizePhone(phone),
	})
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	log.Debug().
		Str("conversationId", conv.ID).
		Str("phone", util.MaskPhone(conv.CustomerPhone)).
		Msg("conversation resolved")

	return conv, nil
}

func (s *ConversationService) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ConversationService) List(ctx context.Context, shopID string, limit, offset int) ([]model.Conversation, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	convs, err := s.repo.List(ctx, shopID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	total, err := s.repo.Count(ctx, shopID)
	if err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}
	return convs, total, nil
}

// Touch refreshes last_message_at after an outbound reply so the
// retention job does not close a conversation an agent just answered.
func (s *ConversationService) Touch(ctx context.Context, id string) error {
	if err := s.repo.Touch(ctx, id); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func (s *ConversationService) Close(ctx context.Context, id string) error {
	if err := s.repo.UpdateStatus(ctx, id, model.ConversationStatusClosed); err != nil {
		return fmt.Errorf("close conversation: %w", err)
	}
	log.Info().Str("conversationId", id).Msg("conversation closed")
	return nil
}

func (s *ConversationService) AudiencePhones(ctx context.Context, shopID string, audience model.CampaignAudience) ([]string, error) {
	var since *time.Time
	if audience == model.CampaignAudienceActive {
		cutoff := time.Now().Add(-30 * 24 * time.Hour)
		since = &cutoff
	}
	return s.repo.ActivePhones(ctx, shopID, since)
}
