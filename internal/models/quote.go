package models

import "time"

// Quote statuses. Transitions are one-directional:
// draft -> sent -> approved|rejected. Terminal states are final.
const (
	StatusDraft    = "draft"
	StatusSent     = "sent"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Discount types applied at the quote level.
const (
	DiscountNone       = "none"
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

type Quote struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	Number        string      `gorm:"not null;uniqueIndex" json:"number"`
	ClientID      uint        `gorm:"not null;index" json:"client_id"`
	Client        Client      `gorm:"foreignKey:ClientID" json:"client"`
	Status        string      `gorm:"not null;default:'draft'" json:"status"`
	Items         []QuoteItem `gorm:"foreignKey:QuoteID" json:"items"`
	DiscountType  string      `gorm:"not null;default:'none'" json:"discount_type"`
	DiscountValue float64     `json:"discount_value"`
	Subtotal      float64     `json:"subtotal"`
	Total         float64     `json:"total"`
	Notes         string      `json:"notes"` // internal, never exposed on the public path
	IssueDate     time.Time   `json:"issue_date"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type QuoteItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	QuoteID     uint    `gorm:"not null;index" json:"quote_id"`
	Position    int     `gorm:"not null" json:"position"`
	Description string  `gorm:"not null" json:"description"`
	UnitPrice   float64 `gorm:"not null" json:"unit_price"`
	Quantity    int     `gorm:"not null" json:"quantity"`
}

// LineTotal returns unit price times quantity for one item.
func (i QuoteItem) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// ValidStatus reports whether s is a known quote status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusSent, StatusApproved, StatusRejected:
		return true
	}
	return false
}
