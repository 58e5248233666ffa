package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/repository"
	"github.com/bobotcho/concierge-server-go/internal/service"
)

type ConversationsHandler struct {
	shopRepo    repository.ShopRepository
	convService *service.ConversationService
	msgService  *service.MessageService
}

func NewConversationsHandler(
	shopRepo repository.ShopRepository,
	convService *service.ConversationService,
	msgService *service.MessageService,
) *ConversationsHandler {
	return &ConversationsHandler{
		shopRepo:    shopRepo,
		convService: convService,
		msgService:  msgService,
	}
}

// List returns the shop's conversations, most recently active first.
func (h *ConversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	shop, ok := requireShop(w, r, h.shopRepo)
	if !ok {
		return
	}

	pagination := ParsePagination(r)
	convs, total, err := h.convService.List(r.Context(), shop.ID, pagination.Limit, pagination.Offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list conversations")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to list conversations"})
		return
	}

	items := make([]map[string]any, 0, len(convs))
	for _, conv := range convs {
		items = append(items, formatConversation(conv))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": items,
		"total":         total,
		"limit":         pagination.Limit,
		"offset":        pagination.Offset,
	})
}

// Messages returns the message history of one conversation, oldest first.
func (h *ConversationsHandler) Messages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	conv, err := h.convService.FindByID(r.Context(), conversationID)
	if err != nil {
		log.Error().Err(err).Str("conversationId", conversationID).Msg("failed to load conversation")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load conversation"})
		return
	}
	if conv == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		return
	}

	pagination := ParsePagination(r)
	msgs, total, err := h.msgService.ListByConversation(r.Context(), conv.ID, pagination.Limit, pagination.Offset)
	if err != nil {
		log.Error().Err(err).Str("conversationId", conv.ID).Msg("failed to list messages")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to list messages"})
		return
	}

	items := make([]map[string]any, 0, len(msgs))
	for _, msg := range msgs {
		items = append(items, formatMessage(msg))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": formatConversation(*conv),
		"messages":     items,
		"total":        total,
		"limit":        pagination.Limit,
		"offset":       pagination.Offset,
	})
}

// Close marks a conversation closed. The next inbound message from the same
// customer starts a fresh conversation.
func (h *ConversationsHandler) Close(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	conv, err := h.convService.FindByID(r.Context(), conversationID)
	if err != nil {
		log.Error().Err(err).Str("conversationId", conversationID).Msg("failed to load conversation")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load conversation"})
		return
	}
	if conv == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		return
	}

	if err := h.convService.Close(r.Context(), conv.ID); err != nil {
		log.Error().Err(err).Str("conversationId", conv.ID).Msg("failed to close conversation")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to close conversation"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

