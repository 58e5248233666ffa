package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bobotcho/concierge-server-go/internal/model"
	"github.com/bobotcho/concierge-server-go/internal/repository"
	"github.com/bobotcho/concierge-server-go/internal/service"
)

func TestAnalyticsHandler_Summary(t *testing.T) {
	shop := &model.Shop{ID: "shop-1"}

	t.Run("aggregates window counts", func(t *testing.T) {
		shopRepo := new(mockShopRepo)
		convRepo := new(mockConversationRepo)
		msgRepo := new(mockMessageRepo)
		aiLogRepo := new(mockAILogRepo)
		h := NewAnalyticsHandler(shopRepo, convRepo, msgRepo, service.NewAILogService(aiLogRepo))

		shopRepo.On("Current", mock.Anything).Return(shop, nil)
		convRepo.On("CountSince", mock.Anything, "shop-1", mock.Anything).Return(4, nil)
		msgRepo.On("CountSince", mock.Anything, "shop-1", model.MessageRoleCustomer, mock.Anything).Return(12, nil)
		msgRepo.On("CountSince", mock.Anything, "shop-1", model.MessageRoleAgent, mock.Anything).Return(9, nil)
		aiLogRepo.On("StatsSince", mock.Anything, "shop-1", mock.Anything).Return(&repository.AIStats{
			Total:        12,
			Errors:       1,
			Timeouts:     1,
			AvgLatencyMS: 850,
			P95LatencyMS: 2400,
		}, nil)

		rec := httptest.NewRecorder()
		h.Summary(rec, httptest.NewRequest("GET", "/api/analytics/summary", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, float64(7), resp["windowDays"])
		assert.Equal(t, float64(4), resp["newConversations"])
		assert.Equal(t, float64(12), resp["inboundMessages"])

		aiStats := resp["ai"].(map[string]any)
		assert.Equal(t, float64(12), aiStats["dispatches"])
		assert.Equal(t, float64(1), aiStats["timeouts"])
	})

	t.Run("clamps out-of-range window", func(t *testing.T) {
		shopRepo := new(mockShopRepo)
		convRepo := new(mockConversationRepo)
		msgRepo := new(mockMessageRepo)
		aiLogRepo := new(mockAILogRepo)
		h := NewAnalyticsHandler(shopRepo, convRepo, msgRepo, service.NewAILogService(aiLogRepo))

		shopRepo.On("Current", mock.Anything).Return(shop, nil)
		convRepo.On("CountSince", mock.Anything, "shop-1", mock.Anything).Return(0, nil)
		msgRepo.On("CountSince", mock.Anything, "shop-1", mock.Anything, mock.Anything).Return(0, nil)
		aiLogRepo.On("StatsSince", mock.Anything, "shop-1", mock.Anything).Return(&repository.AIStats{}, nil)

		rec := httptest.NewRecorder()
		h.Summary(rec, httptest.NewRequest("GET", "/api/analytics/summary?days=500", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, float64(7), resp["windowDays"])
	})
}
