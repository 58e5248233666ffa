package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/bobotcho/concierge-server-go/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
)

// Event types pushed to dashboard clients.
const (
	EventMessageReceived = "message.received"
	EventMessageSent     = "message.sent"
	EventConversation    = "conversation.updated"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	ShopID string
	Events chan Event
	Done   chan struct{}
}

// Broker fans Redis pub/sub events out to connected SSE clients. Publishing
// through Redis keeps multiple server instances in sync.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // shopID -> set of clients
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(shopID string) *Client {
	client := &Client{
		ShopID: shopID,
		Events: make(chan Event, 100),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[shopID] == nil {
		b.clients[shopID] = make(map[*Client]bool)
		go b.subscribeToRedis(shopID)
	}
	b.clients[shopID][client] = true
	clientCount := len(b.clients[shopID])
	b.mu.Unlock()

	log.Info().
		Str("shopId", shopID).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.ShopID]; ok {
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(b.clients, client.ShopID)
		}

		log.Info().
			Str("shopId", client.ShopID).
			Int("clientCount", len(clients)).
			Msg("sse client unsubscribed")
	}
}

func (b *Broker) Publish(ctx context.Context, shopID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.ShopEventChannel(shopID)
	return b.redis.Publish(ctx, channel, data).Err()
}

// PublishJSON marshals payload as the event data and publishes it. Publish
// failures only surface in logs; live events are best effort.
func (b *Broker) PublishJSON(ctx context.Context, shopID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("failed to marshal sse payload")
		return
	}
	if err := b.Publish(ctx, shopID, Event{Type: eventType, Data: data}); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("failed to publish sse event")
	}
}

func (b *Broker) subscribeToRedis(shopID string) {
	channel := redisclient.ShopEventChannel(shopID)
	pubsub := b.redis.Subscribe(b.ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("shopId", shopID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(shopID, event)
		}
	}
}

func (b *Broker) broadcast(shopID string, event Event) {
	b.mu.RLock()
	clients := b.clients[shopID]
	b.mu.RUnlock()

	for client := range clients {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("shopId", shopID).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
}

func (b *Broker) ClientCount(shopID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[shopID])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}
