package model

import "time"

type Conversation struct {
	ID            string             `db:"id" json:"id"`
	ShopID        string             `db:"shop_id" json:"shopId"`
	CustomerPhone string             `db:"customer_phone" json:"customerPhone"`
	Status        ConversationStatus `db:"status" json:"status"`
	LastMessageAt time.Time          `db:"last_message_at" json:"lastMessageAt"`
	CreatedAt     time.Time          `db:"created_at" json:"createdAt"`
}

type UpsertConversationParams struct {
	ShopID        string
	CustomerPhone string
}
