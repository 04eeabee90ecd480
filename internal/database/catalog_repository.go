package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/staylane/reservation-backend/internal/models"
)

// CatalogRepository reads business units and room types
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetBusinessUnit returns a business unit by ID, or nil if not found
func (r *CatalogRepository) GetBusinessUnit(ctx context.Context, id string) (*models.BusinessUnit, error) {
	query := `
		SELECT id, name, slug, currency, is_active, created_at, updated_at
		FROM business_units
		WHERE id = $1`

	var unit models.BusinessUnit
	err := r.db.GetContext(ctx, &unit, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business unit: %w", err)
	}
	return &unit, nil
}

// GetRoomType returns a room type by ID, or nil if not found
func (r *CatalogRepository) GetRoomType(ctx context.Context, id string) (*models.RoomType, error) {
	query := `
		SELECT id, business_unit_id, name, base_rate,
			max_occupancy, max_adults, max_children,
			is_active, created_at, updated_at
		FROM room_types
		WHERE id = $1`

	var roomType models.RoomType
	err := r.db.GetContext(ctx, &roomType, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room type: %w", err)
	}
	return &roomType, nil
}
