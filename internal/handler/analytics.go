package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/model"
	"github.com/bobotcho/concierge-server-go/internal/repository"
	"github.com/bobotcho/concierge-server-go/internal/service"
)

type AnalyticsHandler struct {
	shopRepo     repository.ShopRepository
	convRepo     repository.ConversationRepository
	msgRepo      repository.MessageRepository
	aiLogService *service.AILogService
}

func NewAnalyticsHandler(
	shopRepo repository.ShopRepository,
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	aiLogService *service.AILogService,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		shopRepo:     shopRepo,
		convRepo:     convRepo,
		msgRepo:      msgRepo,
		aiLogService: aiLogService,
	}
}

// Summary aggregates activity over a trailing window, default 7 days.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	shop, ok := requireShop(w, r, h.shopRepo)
	if !ok {
		return
	}

	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 || days > 90 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)

	ctx := r.Context()

	newConversations, err := h.convRepo.CountSince(ctx, shop.ID, since)
	if err != nil {
		log.Error().Err(err).Msg("failed to count conversations")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to build summary"})
		return
	}

	inbound, err := h.msgRepo.CountSince(ctx, shop.ID, model.MessageRoleCustomer, since)
	if err != nil {
		log.Error().Err(err).Msg("failed to count inbound messages")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to build summary"})
		return
	}

	outbound, err := h.msgRepo.CountSince(ctx, shop.ID, model.MessageRoleAgent, since)
	if err != nil {
		log.Error().Err(err).Msg("failed to count outbound messages")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to build summary"})
		return
	}

	aiStats, err := h.aiLogService.StatsSince(ctx, shop.ID, since)
	if err != nil {
		log.Error().Err(err).Msg("failed to load ai stats")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to build summary"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"windowDays":       days,
		"newConversations": newConversations,
		"inboundMessages":  inbound,
		"outboundMessages": outbound,
		"ai": map[string]any{
			"dispatches":   aiStats.Total,
			"errors":       aiStats.Errors,
			"timeouts":     aiStats.Timeouts,
			"avgLatencyMs": aiStats.AvgLatencyMS,
			"p95LatencyMs": aiStats.P95LatencyMS,
		},
	})
}
