package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MessageMetadata is the structured metadata bag stored alongside each
// message. Known provider fields are typed; Extra carries anything the
// provider adds later without a schema change.
type MessageMetadata struct {
	FromRaw string            `json:"from_raw,omitempty"`
	ToRaw   string            `json:"to_raw,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

func (m MessageMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *MessageMetadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = MessageMetadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
}

// Message is an immutable record of one inbound or outbound message.
// ProviderSID is the Twilio-assigned identifier; it is unique across all
// stored messages and serves as the deduplication key.
type Message struct {
	ID             string          `db:"id" json:"id"`
	ConversationID string          `db:"conversation_id" json:"conversationId"`
	ShopID         string          `db:"shop_id" json:"shopId"`
	Role           MessageRole     `db:"role" json:"role"`
	Content        string          `db:"content" json:"content"`
	ProviderSID    *string         `db:"provider_sid" json:"providerSid,omitempty"`
	Metadata       MessageMetadata `db:"metadata" json:"metadata"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

type CreateMessageParams struct {
	ConversationID string
	ShopID         string
	Role           MessageRole
	Content        string
	ProviderSID    *string
	Metadata       MessageMetadata
}
