package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/repository"
	"github.com/bobotcho/concierge-server-go/internal/sse"
)

// EventsHandler streams dashboard events for the shop over SSE.
type EventsHandler struct {
	shopRepo repository.ShopRepository
	broker   *sse.Broker
}

func NewEventsHandler(shopRepo repository.ShopRepository, broker *sse.Broker) *EventsHandler {
	return &EventsHandler{shopRepo: shopRepo, broker: broker}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	shop, ok := requireShop(w, r, h.shopRepo)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(shop.ID)
	defer h.broker.Unsubscribe(client)

	log.Info().Str("shopId", shop.ID).Msg("sse connection established")

	if err := h.sendEvent(w, flusher, sse.Event{
		Type: "connected",
		Data: json.RawMessage(fmt.Sprintf(`{"shopId":%q}`, shop.ID)),
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(sse.HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("shopId", shop.ID).Msg("sse connection closed by client")
			return

		case <-client.Done:
			log.Info().Str("shopId", shop.ID).Msg("sse connection closed by broker")
			return

		case event := <-client.Events:
			if err := h.sendEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().Str("shopId", shop.ID).Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
