package models

import "time"

// EmailLog records every dispatched quote email. The unique idempotency
// key (quote id + target status) is what keeps a retried send single-shot:
// claiming the key is an insert that can only succeed once.
type EmailLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	IdempotencyKey string    `gorm:"not null;uniqueIndex" json:"idempotency_key"`
	QuoteID        uint      `gorm:"not null;index" json:"quote_id"`
	Recipient      string    `gorm:"not null" json:"recipient"`
	SentAt         time.Time `json:"sent_at"`
}
