package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/ai"
	"github.com/bobotcho/concierge-server-go/internal/httputil"
	"github.com/bobotcho/concierge-server-go/internal/middleware"
	"github.com/bobotcho/concierge-server-go/internal/model"
	"github.com/bobotcho/concierge-server-go/internal/observability/metrics"
	"github.com/bobotcho/concierge-server-go/internal/repository"
	"github.com/bobotcho/concierge-server-go/internal/service"
	"github.com/bobotcho/concierge-server-go/internal/sse"
	"github.com/bobotcho/concierge-server-go/internal/twilio"
	"github.com/bobotcho/concierge-server-go/internal/util"
)

// AIDispatcher is what the webhook needs from the AI layer.
type AIDispatcher interface {
	Dispatch(ctx context.Context, req ai.Request) ai.Result
}

// WebhookHandler runs the inbound message pipeline: parse, dedupe, persist,
// dispatch to AI, audit. Signature verification happens in middleware before
// the handler sees the request.
type WebhookHandler struct {
	shopRepo     repository.ShopRepository
	convService  *service.ConversationService
	msgService   *service.MessageService
	aiLogService *service.AILogService
	dispatcher   AIDispatcher
	broker       *sse.Broker
	metrics      *metrics.WebhookMetrics
}

func NewWebhookHandler(
	shopRepo repository.ShopRepository,
	convService *service.ConversationService,
	msgService *service.MessageService,
	aiLogService *service.AILogService,
	dispatcher AIDispatcher,
	broker *sse.Broker,
	webhookMetrics *metrics.WebhookMetrics,
) *WebhookHandler {
	return &WebhookHandler{
		shopRepo:     shopRepo,
		convService:  convService,
		msgService:   msgService,
		aiLogService: aiLogService,
		dispatcher:   dispatcher,
		broker:       broker,
		metrics:      webhookMetrics,
	}
}

func (h *WebhookHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	form := middleware.GetWebhookForm(ctx)
	if form == nil {
		log.Error().Msg("webhook handler reached without verified form")
		httputil.WriteText(w, http.StatusInternalServerError, "Webhook misconfigured")
		return
	}

	inbound := twilio.ParseInbound(form)
	if inbound.From == "" || inbound.Body == "" {
		h.metrics.ObserveInbound("invalid")
		httputil.WriteText(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	logger := log.With().
		Str("providerSid", inbound.MessageSID).
		Str("phone", util.MaskPhone(inbound.CustomerPhone())).
		Logger()

	// Fast path for redelivered webhooks. The unique constraint on insert
	// below remains the authoritative guard.
	if inbound.MessageSID != "" {
		seen, err := h.msgService.SeenProviderSID(ctx, inbound.MessageSID)
		if err != nil {
			logger.Error().Err(err).Msg("duplicate check failed")
			h.metrics.ObserveInbound("error")
			httputil.WriteText(w, http.StatusInternalServerError, "Internal error")
			return
		}
		if seen {
			logger.Info().Msg("duplicate webhook delivery acknowledged")
			h.metrics.ObserveInbound("duplicate")
			h.ackEmpty(w)
			return
		}
	}

	shop, err := h.shopRepo.Current(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("shop lookup failed")
		h.metrics.ObserveInbound("error")
		httputil.WriteText(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if shop == nil {
		logger.Error().Msg("no shop provisioned")
		h.metrics.ObserveInbound("error")
		httputil.WriteText(w, http.StatusInternalServerError, "Shop not configured")
		return
	}

	conv, err := h.convService.Resolve(ctx, shop.ID, inbound.From)
	if err != nil {
		logger.Error().Err(err).Msg("failed to resolve conversation")
		h.metrics.ObserveInbound("error")
		httputil.WriteText(w, http.StatusInternalServerError, "Internal error")
		return
	}

	msg, err := h.msgService.RecordInbound(ctx, conv, service.InboundContent{
		ProviderSID: inbound.MessageSID,
		Body:        inbound.Body,
		FromRaw:     inbound.From,
		ToRaw:       inbound.To,
	})
	if err != nil {
		if errors.Is(err, service.ErrDuplicateMessage) {
			h.metrics.ObserveInbound("duplicate")
			h.ackEmpty(w)
			return
		}
		logger.Error().Err(err).Msg("failed to record inbound message")
		h.metrics.ObserveInbound("error")
		httputil.WriteText(w, http.StatusInternalServerError, "Internal error")
		return
	}

	logger.Info().
		Str("conversationId", conv.ID).
		Str("messageId", msg.ID).
		Msg("inbound message recorded")

	if h.broker != nil {
		h.broker.PublishJSON(ctx, shop.ID, sse.EventMessageReceived, map[string]any{
			"conversationId": conv.ID,
			"messageId":      msg.ID,
			"role":           model.MessageRoleCustomer,
			"content":        msg.Content,
		})
	}

	// The backend replies straight to From, so it gets the bare number
	// rather than the channel-prefixed address.
	result := h.dispatcher.Dispatch(ctx, ai.Request{
		Body:           inbound.Body,
		From:           inbound.CustomerPhone(),
		ConversationID: conv.ID,
		MessageID:      msg.ID,
	})
	h.metrics.ObserveAIDispatch(result.Provider, result.Latency, result.Err != nil, result.Timeout)

	if err := h.aiLogService.Record(ctx, shop.ID, conv.ID, &msg.ID, inbound.Body, result); err != nil {
		// The audit row is best effort; the webhook still acknowledges.
		logger.Error().Err(err).Msg("failed to record ai log")
	}

	h.metrics.ObserveInbound("accepted")
	h.ackEmpty(w)
}

// ackEmpty sends the empty TwiML document Twilio expects. Replies reach the
// customer through the AI backend, not through this response.
func (h *WebhookHandler) ackEmpty(w http.ResponseWriter) {
	httputil.WriteXML(w, http.StatusOK, twilio.EmptyTwiML())
}
