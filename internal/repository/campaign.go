package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bobotcho/concierge-server-go/internal/model"
)

type CampaignRepository interface {
	FindByID(ctx context.Context, id string) (*model.Campaign, error)
	List(ctx context.Context, shopID string, limit, offset int) ([]model.Campaign, error)
	Create(ctx context.Context, params model.CreateCampaignParams) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) error
	AddCounts(ctx context.Context, id string, sent, failed int) error
}

type campaignRepo struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) CampaignRepository {
	return &campaignRepo{db: db}
}

func (r *campaignRepo) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	var campaign model.Campaign
	err := r.db.GetContext(ctx, &campaign, `SELECT * FROM campaigns WHERE id = $1`, id)
	return HandleNotFound(&campaign, err)
}

func (r *campaignRepo) List(ctx context.Context, shopID string, limit, offset int) ([]model.Campaign, error) {
	var campaigns []model.Campaign
	err := r.db.SelectContext(ctx, &campaigns, `
		SELECT * FROM campaigns
		WHERE shop_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, shopID, limit, offset)
	return campaigns, err
}

func (r *campaignRepo) Create(ctx context.Context, params model.CreateCampaignParams) (*model.Campaign, error) {
	var campaign model.Campaign
	err := r.db.GetContext(ctx, &campaign, `
		INSERT INTO campaigns (shop_id, name, template_body, audience)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.ShopID, params.Name, params.TemplateBody, params.Audience)
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *campaignRepo) UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	return err
}

func (r *campaignRepo) AddCounts(ctx context.Context, id string, sent, failed int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET
			sent_count = sent_count + $2,
			failed_count = failed_count + $3,
			updated_at = NOW()
		WHERE id = $1
	`, id, sent, failed)
	return err
}
