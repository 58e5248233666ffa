package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bobotcho/concierge-server-go/internal/model"
)

type ShopRepository interface {
	// Current returns the single shop of the mono-tenant deployment, or
	// nil when none has been provisioned yet.
	Current(ctx context.Context) (*model.Shop, error)
	FindByID(ctx context.Context, id string) (*model.Shop, error)
}

type shopRepo struct {
	db *sqlx.DB
}

func NewShopRepository(db *sqlx.DB) ShopRepository {
	return &shopRepo{db: db}
}

func (r *shopRepo) Current(ctx context.Context) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.GetContext(ctx, &shop, `
		SELECT * FROM shops ORDER BY created_at ASC LIMIT 1
	`)
	return HandleNotFound(&shop, err)
}

func (r *shopRepo) FindByID(ctx context.Context, id string) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.GetContext(ctx, &shop, `SELECT * FROM shops WHERE id = $1`, id)
	return HandleNotFound(&shop, err)
}
