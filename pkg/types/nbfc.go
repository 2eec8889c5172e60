package types

import "time"

// NBFC is a registered lending partner allowed to quote on cases.
type NBFC struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Slug            string    `db:"slug" json:"slug"`
	RBIRegistration *string   `db:"rbi_registration" json:"rbiRegistration,omitempty"`
	IsActive        bool      `db:"is_active" json:"isActive"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}
