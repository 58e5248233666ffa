package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/bobotcho/concierge-server-go/internal/errors"
	"github.com/bobotcho/concierge-server-go/internal/model"
	"github.com/bobotcho/concierge-server-go/internal/repository"
	"github.com/bobotcho/concierge-server-go/internal/twilio"
	"github.com/bobotcho/concierge-server-go/internal/util"
)

const campaignSendTimeout = 15 * time.Second

type CampaignService struct {
	repo          repository.CampaignRepository
	conversations *ConversationService
	sender        twilio.Sender
}

func NewCampaignService(repo repository.CampaignRepository, conversations *ConversationService, sender twilio.Sender) *CampaignService {
	return &CampaignService{repo: repo, conversations: conversations, sender: sender}
}

func (s *CampaignService) Create(ctx context.Context, params model.CreateCampaignParams) (*model.Campaign, error) {
	if params.Name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	if params.TemplateBody == "" {
		return nil, apperrors.MissingRequired("templateBody")
	}
	if params.Audience != model.CampaignAudienceAll && params.Audience != model.CampaignAudienceActive {
		return nil, apperrors.InvalidInput("audience", "must be 'all' or 'active'")
	}
	return s.repo.Create(ctx, params)
}

func (s *CampaignService) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *CampaignService) List(ctx context.Context, shopID string, limit, offset int) ([]model.Campaign, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, shopID, limit, offset)
}

// Launch marks a draft campaign as sending and delivers it in the background.
// Only draft and failed campaigns can be launched.
func (s *CampaignService) Launch(ctx context.Context, id string) (*model.Campaign, error) {
	campaign, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignStatusDraft && campaign.Status != model.CampaignStatusFailed {
		return nil, apperrors.AlreadyExists("Campaign launch")
	}
	if s.sender == nil {
		return nil, apperrors.Configuration("messaging provider is not configured")
	}

	phones, err := s.conversations.AudiencePhones(ctx, campaign.ShopID, campaign.Audience)
	if err != nil {
		return nil, fmt.Errorf("resolve campaign audience: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, id, model.CampaignStatusSending); err != nil {
		return nil, fmt.Errorf("mark campaign sending: %w", err)
	}
	campaign.Status = model.CampaignStatusSending

	go s.deliver(campaign, phones)

	return campaign, nil
}

// deliver runs detached from the launching request.
func (s *CampaignService) deliver(campaign *model.Campaign, phones []string) {
	logger := log.With().
		Str("campaignId", campaign.ID).
		Str("batchId", uuid.NewString()).
		Logger()
	logger.Info().Int("recipients", len(phones)).Msg("campaign delivery started")

	var sent, failed int
	for _, phone := range phones {
		ctx, cancel := context.WithTimeout(context.Background(), campaignSendTimeout)
		_, err := s.sender.SendWhatsApp(ctx, phone, campaign.TemplateBody)
		cancel()

		if err != nil {
			failed++
			logger.Warn().Err(err).Str("phone", util.MaskPhone(phone)).Msg("campaign send failed")
		} else {
			sent++
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), campaignSendTimeout)
	defer cancel()

	if err := s.repo.AddCounts(ctx, campaign.ID, sent, failed); err != nil {
		logger.Error().Err(err).Msg("failed to record campaign counts")
	}

	final := model.CampaignStatusSent
	if sent == 0 && failed > 0 {
		final = model.CampaignStatusFailed
	}
	if err := s.repo.UpdateStatus(ctx, campaign.ID, final); err != nil {
		logger.Error().Err(err).Msg("failed to finalize campaign status")
	}

	logger.Info().Int("sent", sent).Int("failed", failed).Str("status", string(final)).Msg("campaign delivery finished")
}
