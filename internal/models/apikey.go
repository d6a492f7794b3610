package models

import "time"

type ApiKey struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	KeyHash    string    `json:"-"`
	KeyPreview string    `json:"key_preview"`
	UserID     int       `json:"user_id"`
	CompanyID  int       `json:"company_id"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}
