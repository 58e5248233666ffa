package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/model"
	"github.com/bobotcho/concierge-server-go/internal/repository"
	"github.com/bobotcho/concierge-server-go/internal/service"
)

type AILogsHandler struct {
	shopRepo     repository.ShopRepository
	aiLogService *service.AILogService
}

func NewAILogsHandler(shopRepo repository.ShopRepository, aiLogService *service.AILogService) *AILogsHandler {
	return &AILogsHandler{shopRepo: shopRepo, aiLogService: aiLogService}
}

func (h *AILogsHandler) List(w http.ResponseWriter, r *http.Request) {
	shop, ok := requireShop(w, r, h.shopRepo)
	if !ok {
		return
	}

	pagination := ParsePagination(r)
	logs, err := h.aiLogService.ListRecent(r.Context(), shop.ID, pagination.Limit, pagination.Offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list ai logs")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to list ai logs"})
		return
	}

	items := make([]map[string]any, 0, len(logs))
	for _, entry := range logs {
		items = append(items, formatAILog(entry))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logs":   items,
		"limit":  pagination.Limit,
		"offset": pagination.Offset,
	})
}

func formatAILog(entry model.AILog) map[string]any {
	return map[string]any{
		"id":             entry.ID,
		"conversationId": entry.ConversationID,
		"messageId":      entry.MessageID,
		"input":          entry.Input,
		"output":         entry.Output,
		"metrics": map[string]any{
			"latencyMs": entry.Metrics.LatencyMS,
			"error":     entry.Metrics.Error,
			"timeout":   entry.Metrics.Timeout,
			"provider":  entry.Metrics.Provider,
		},
		"createdAt": entry.CreatedAt.Format(time.RFC3339),
	}
}
