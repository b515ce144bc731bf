package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/quotecraft/quotecraft/internal/models"
)

// tokenBytes gives 256 bits of entropy per token.
const tokenBytes = 32

// TokenService issues and validates opaque public-access tokens.
//
// Issue policy: a still-live token for the quote is reused; a quote whose
// latest token expired or was revoked gets a fresh row. Old rows stay in
// place and keep failing validation on their own merits.
type TokenService struct {
	DB         *gorm.DB
	ExpiryDays int

	// now is swappable for tests.
	now func() time.Time
}

func NewTokenService(db *gorm.DB, expiryDays int) *TokenService {
	if expiryDays <= 0 {
		expiryDays = 30
	}
	return &TokenService{DB: db, ExpiryDays: expiryDays, now: time.Now}
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Issue returns a live token for the quote, creating one if needed.
func (s *TokenService) Issue(ctx context.Context, quoteID uint) (models.AccessToken, error) {
	now := s.now()
	var existing models.AccessToken
	err := s.DB.WithContext(ctx).
		Where("quote_id = ? AND revoked = ? AND expires_at > ?", quoteID, false, now).
		Order("id desc").First(&existing).Error
	if err == nil {
		logrus.WithFields(logrus.Fields{"quote_id": quoteID, "token_id": existing.ID}).Debug("reusing live token")
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.AccessToken{}, err
	}

	value, err := generateToken()
	if err != nil {
		return models.AccessToken{}, err
	}
	tok := models.AccessToken{
		Token:     value,
		QuoteID:   quoteID,
		ExpiresAt: now.Add(time.Duration(s.ExpiryDays) * 24 * time.Hour),
	}
	if err := s.DB.WithContext(ctx).Create(&tok).Error; err != nil {
		return models.AccessToken{}, err
	}
	logrus.WithFields(logrus.Fields{"quote_id": quoteID, "expires_in_days": s.ExpiryDays}).Info("token created")
	return tok, nil
}

// Validate resolves a token to its quote's public projection. Failures
// are ErrTokenNotFound, ErrTokenExpired or ErrTokenRevoked.
func (s *TokenService) Validate(ctx context.Context, token string) (PublicQuote, error) {
	if token == "" {
		return PublicQuote{}, ErrTokenNotFound
	}
	var tok models.AccessToken
	err := s.DB.WithContext(ctx).Where("token = ?", token).First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logrus.Debug("token validation failed, token not found")
		return PublicQuote{}, ErrTokenNotFound
	}
	if err != nil {
		return PublicQuote{}, err
	}
	if tok.Revoked {
		logrus.WithField("quote_id", tok.QuoteID).Debug("token validation failed, revoked")
		return PublicQuote{}, ErrTokenRevoked
	}
	if !s.now().Before(tok.ExpiresAt) {
		logrus.WithField("quote_id", tok.QuoteID).Debug("token validation failed, expired")
		return PublicQuote{}, ErrTokenExpired
	}

	var quote models.Quote
	if err := s.DB.WithContext(ctx).Preload("Items", itemOrder).Preload("Client").
		First(&quote, tok.QuoteID).Error; err != nil {
		return PublicQuote{}, err
	}
	return ProjectPublic(quote), nil
}

// Revoke marks a token revoked. Subsequent validations fail.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	res := s.DB.WithContext(ctx).Model(&models.AccessToken{}).
		Where("token = ?", token).Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// RevokeForQuote revokes every token bound to a quote.
func (s *TokenService) RevokeForQuote(ctx context.Context, quoteID uint) error {
	return s.DB.WithContext(ctx).Model(&models.AccessToken{}).
		Where("quote_id = ?", quoteID).Update("revoked", true).Error
}

func itemOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}
