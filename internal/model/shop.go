package model

import "time"

// Shop is the single tenant record of the current deployment. It is created
// out of band and read-only to the webhook.
type Shop struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	WhatsAppNumber string    `db:"whatsapp_number" json:"whatsappNumber"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
