package models

import "time"

// Service is a catalog entry. Its price is copied into quote items at
// creation time, never live-linked.
type Service struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null;index" json:"name"`
	Description string    `json:"description"`
	BasePrice   float64   `gorm:"not null" json:"base_price"`
	Category    string    `json:"category"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
