package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/audit"
	apperrors "github.com/bobotcho/concierge-server-go/internal/errors"
	"github.com/bobotcho/concierge-server-go/internal/httputil"
	"github.com/bobotcho/concierge-server-go/internal/model"
	"github.com/bobotcho/concierge-server-go/internal/repository"
	"github.com/bobotcho/concierge-server-go/internal/service"
)

type CampaignsHandler struct {
	shopRepo        repository.ShopRepository
	campaignService *service.CampaignService
}

func NewCampaignsHandler(shopRepo repository.ShopRepository, campaignService *service.CampaignService) *CampaignsHandler {
	return &CampaignsHandler{shopRepo: shopRepo, campaignService: campaignService}
}

type createCampaignRequest struct {
	Name         string `json:"name"`
	TemplateBody string `json:"templateBody"`
	Audience     string `json:"audience"`
}

func (h *CampaignsHandler) Create(w http.ResponseWriter, r *http.Request) {
	shop, ok := requireShop(w, r, h.shopRepo)
	if !ok {
		return
	}

	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.Audience == "" {
		req.Audience = string(model.CampaignAudienceAll)
	}

	campaign, err := h.campaignService.Create(r.Context(), model.CreateCampaignParams{
		ShopID:       shop.ID,
		Name:         req.Name,
		TemplateBody: req.TemplateBody,
		Audience:     model.CampaignAudience(req.Audience),
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			httputil.WriteError(w, err)
			return
		}
		log.Error().Err(err).Msg("failed to create campaign")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create campaign"})
		return
	}

	writeJSON(w, http.StatusCreated, formatCampaign(*campaign))
}

func (h *CampaignsHandler) List(w http.ResponseWriter, r *http.Request) {
	shop, ok := requireShop(w, r, h.shopRepo)
	if !ok {
		return
	}

	pagination := ParsePagination(r)
	campaigns, err := h.campaignService.List(r.Context(), shop.ID, pagination.Limit, pagination.Offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list campaigns")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to list campaigns"})
		return
	}

	items := make([]map[string]any, 0, len(campaigns))
	for _, c := range campaigns {
		items = append(items, formatCampaign(c))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"campaigns": items,
		"limit":     pagination.Limit,
		"offset":    pagination.Offset,
	})
}

func (h *CampaignsHandler) Get(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.campaignService.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Error().Err(err).Msg("failed to load campaign")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load campaign"})
		return
	}
	if campaign == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Campaign not found"})
		return
	}

	writeJSON(w, http.StatusOK, formatCampaign(*campaign))
}

// Send launches delivery of a draft campaign. The call returns as soon as the
// campaign is marked sending; progress lands in sentCount/failedCount.
func (h *CampaignsHandler) Send(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")

	existing, err := h.campaignService.FindByID(r.Context(), campaignID)
	if err != nil {
		log.Error().Err(err).Str("campaignId", campaignID).Msg("failed to load campaign")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load campaign"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Campaign not found"})
		return
	}

	campaign, err := h.campaignService.Launch(r.Context(), campaignID)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			if appErr.Code == apperrors.ErrCodeAlreadyExists {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "Campaign has already been sent"})
				return
			}
			httputil.WriteError(w, err)
			return
		}
		log.Error().Err(err).Str("campaignId", campaignID).Msg("failed to launch campaign")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to launch campaign"})
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventCampaignLaunch,
		ShopID: campaign.ShopID,
		Details: map[string]any{
			"campaignId": campaign.ID,
			"audience":   campaign.Audience,
		},
	})

	writeJSON(w, http.StatusAccepted, formatCampaign(*campaign))
}
