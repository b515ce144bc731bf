package models

import "time"

// AccessToken grants read-only public access to exactly one quote until
// expiry or revocation. The token value is purely random, never derived
// from the quote id or a timestamp.
type AccessToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"not null;uniqueIndex" json:"-"`
	QuoteID   uint      `gorm:"not null;index" json:"quote_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false" json:"revoked"`
}

// Live reports whether the token is still usable at the given instant.
func (t AccessToken) Live(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
