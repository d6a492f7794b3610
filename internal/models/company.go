package models

import "time"

// Company is the tenant root. Every category, expense, user and api key hangs off one.
type Company struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Website   string    `json:"website"`
	Logo      []byte    `json:"logo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
