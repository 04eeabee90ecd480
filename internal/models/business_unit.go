package models

import "time"

// BusinessUnit is a property (hotel) that owns guests, room types and reservations
type BusinessUnit struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	Currency  string    `json:"currency" db:"currency"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RoomType is a bookable category of rooms with capacity limits
type RoomType struct {
	ID             string    `json:"id" db:"id"`
	BusinessUnitID string    `json:"business_unit_id" db:"business_unit_id"`
	Name           string    `json:"name" db:"name"`
	BaseRate       float64   `json:"base_rate" db:"base_rate"`
	MaxOccupancy   int       `json:"max_occupancy" db:"max_occupancy"`
	MaxAdults      int       `json:"max_adults" db:"max_adults"`
	MaxChildren    int       `json:"max_children" db:"max_children"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
