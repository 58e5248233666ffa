package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/httputil"
	"github.com/bobotcho/concierge-server-go/internal/model"
	"github.com/bobotcho/concierge-server-go/internal/repository"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// requireShop loads the mono-tenant shop or writes the error response.
func requireShop(w http.ResponseWriter, r *http.Request, repo repository.ShopRepository) (*model.Shop, bool) {
	shop, err := repo.Current(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("shop lookup failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		return nil, false
	}
	if shop == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Shop not configured"})
		return nil, false
	}
	return shop, true
}

func formatConversation(conv model.Conversation) map[string]any {
	return map[string]any{
		"id":            conv.ID,
		"customerPhone": conv.CustomerPhone,
		"status":        conv.Status,
		"lastMessageAt": conv.LastMessageAt.Format(time.RFC3339),
		"createdAt":     conv.CreatedAt.Format(time.RFC3339),
	}
}

func formatMessage(msg model.Message) map[string]any {
	return map[string]any{
		"id":             msg.ID,
		"conversationId": msg.ConversationID,
		"role":           msg.Role,
		"content":        msg.Content,
		"providerSid":    msg.ProviderSID,
		"createdAt":      msg.CreatedAt.Format(time.RFC3339),
	}
}

func formatCampaign(c model.Campaign) map[string]any {
	return map[string]any{
		"id":           c.ID,
		"name":         c.Name,
		"templateBody": c.TemplateBody,
		"audience":     c.Audience,
		"status":       c.Status,
		"sentCount":    c.SentCount,
		"failedCount":  c.FailedCount,
		"createdAt":    c.CreatedAt.Format(time.RFC3339),
		"updatedAt":    c.UpdatedAt.Format(time.RFC3339),
	}
}
