package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AIMetrics is the structured metrics bag attached to each AI interaction
// log entry. Error is nil on success; Timeout distinguishes deadline expiry
// from other upstream failures.
type AIMetrics struct {
	LatencyMS int64             `json:"latency_ms"`
	Error     *string           `json:"error,omitempty"`
	Timeout   bool              `json:"timeout,omitempty"`
	Provider  string            `json:"provider,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

func (m AIMetrics) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *AIMetrics) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = AIMetrics{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metrics type %T", src)
	}
}

// AILog is one append-only record per webhook invocation that reached the
// AI-dispatch stage, created on success and failure alike.
type AILog struct {
	ID             string    `db:"id" json:"id"`
	ShopID         string    `db:"shop_id" json:"shopId"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	MessageID      *string   `db:"message_id" json:"messageId,omitempty"`
	Input          string    `db:"input" json:"input"`
	Output         string    `db:"output" json:"output"`
	Metrics        AIMetrics `db:"metrics" json:"metrics"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

type CreateAILogParams struct {
	ShopID         string
	ConversationID string
	MessageID      *string
	Input          string
	Output         string
	Metrics        AIMetrics
}
