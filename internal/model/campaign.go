package model

import "time"

// Campaign is a bulk WhatsApp send to a conversation audience. The launch
// worker updates sent/failed counts as it goes.
type Campaign struct {
	ID           string           `db:"id" json:"id"`
	ShopID       string           `db:"shop_id" json:"shopId"`
	Name         string           `db:"name" json:"name"`
	TemplateBody string           `db:"template_body" json:"templateBody"`
	Audience     CampaignAudience `db:"audience" json:"audience"`
	Status       CampaignStatus   `db:"status" json:"status"`
	SentCount    int              `db:"sent_count" json:"sentCount"`
	FailedCount  int              `db:"failed_count" json:"failedCount"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updatedAt"`
}

type CreateCampaignParams struct {
	ShopID       string
	Name         string
	TemplateBody string
	Audience     CampaignAudience
}
