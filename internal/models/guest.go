package models

import "time"

// GuestSource records how a guest first reached the property
type GuestSource string

const (
	GuestSourceWebsite GuestSource = "WEBSITE"
	GuestSourceWalkIn  GuestSource = "WALK_IN"
	GuestSourcePhone   GuestSource = "PHONE"
	GuestSourceOTA     GuestSource = "OTA"
)

// Guest is unique per (business unit, email)
type Guest struct {
	ID             string      `json:"id" db:"id"`
	BusinessUnitID string      `json:"business_unit_id" db:"business_unit_id"`
	FirstName      string      `json:"first_name" db:"first_name"`
	LastName       string      `json:"last_name" db:"last_name"`
	Email          string      `json:"email" db:"email"`
	Phone          *string     `json:"phone,omitempty" db:"phone"`
	IsVIP          bool        `json:"is_vip" db:"is_vip"`
	IsBlacklisted  bool        `json:"is_blacklisted" db:"is_blacklisted"`
	Source         GuestSource `json:"source" db:"source"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// FullName joins first and last name
func (g *Guest) FullName() string {
	if g.LastName == "" {
		return g.FirstName
	}
	return g.FirstName + " " + g.LastName
}
