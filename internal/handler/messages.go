package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/audit"
	"github.com/bobotcho/concierge-server-go/internal/model"
	"github.com/bobotcho/concierge-server-go/internal/observability/metrics"
	"github.com/bobotcho/concierge-server-go/internal/service"
	"github.com/bobotcho/concierge-server-go/internal/sse"
	"github.com/bobotcho/concierge-server-go/internal/twilio"
	"github.com/bobotcho/concierge-server-go/internal/util"
)

// MessagesHandler sends manual agent replies from the dashboard.
type MessagesHandler struct {
	convService *service.ConversationService
	msgService  *service.MessageService
	sender      twilio.Sender
	broker      *sse.Broker
	metrics     *metrics.WebhookMetrics
}

func NewMessagesHandler(
	convService *service.ConversationService,
	msgService *service.MessageService,
	sender twilio.Sender,
	broker *sse.Broker,
	webhookMetrics *metrics.WebhookMetrics,
) *MessagesHandler {
	return &MessagesHandler{
		convService: convService,
		msgService:  msgService,
		sender:      sender,
		broker:      broker,
		metrics:     webhookMetrics,
	}
}

type sendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Body           string `json:"body"`
}

func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.ConversationID == "" || req.Body == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "conversationId and body are required"})
		return
	}

	if h.sender == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Messaging provider is not configured"})
		return
	}

	conv, err := h.convService.FindByID(r.Context(), req.ConversationID)
	if err != nil {
		log.Error().Err(err).Str("conversationId", req.ConversationID).Msg("failed to load conversation")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		return
	}
	if conv == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		return
	}

	sid, err := h.sender.SendWhatsApp(r.Context(), conv.CustomerPhone, req.Body)
	if err != nil {
		h.metrics.ObserveOutbound("failed")
		log.Error().Err(err).
			Str("conversationId", conv.ID).
			Str("phone", util.MaskPhone(conv.CustomerPhone)).
			Msg("outbound send failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Failed to send message"})
		return
	}
	h.metrics.ObserveOutbound("sent")

	msg, err := h.msgService.RecordOutbound(r.Context(), conv, model.MessageRoleAgent, req.Body, sid)
	if err != nil {
		// The message left the building; report success but flag the gap.
		log.Error().Err(err).Str("conversationId", conv.ID).Msg("sent message was not recorded")
		writeJSON(w, http.StatusOK, map[string]any{"providerSid": sid})
		return
	}

	// Outbound activity counts for idleness the same as inbound.
	if err := h.convService.Touch(r.Context(), conv.ID); err != nil {
		log.Error().Err(err).Str("conversationId", conv.ID).Msg("failed to touch conversation")
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventOutboundSend,
		ShopID: conv.ShopID,
		Phone:  conv.CustomerPhone,
	})

	if h.broker != nil {
		h.broker.PublishJSON(r.Context(), conv.ShopID, sse.EventMessageSent, map[string]any{
			"conversationId": conv.ID,
			"messageId":      msg.ID,
			"role":           model.MessageRoleAgent,
			"content":        msg.Content,
		})
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     formatMessage(*msg),
		"providerSid": sid,
	})
}
