package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quotecraft/quotecraft/internal/mail"
	"github.com/quotecraft/quotecraft/internal/models"
	"github.com/quotecraft/quotecraft/internal/pdf"
)

var ErrNoItems = errors.New("quote has no items")

// ItemInput is one requested line item. When ServiceID is set and price
// or description are zero-valued, they are copied from the catalog entry;
// the copy is a snapshot, later catalog edits never touch the quote.
type ItemInput struct {
	ServiceID   uint    `json:"service_id"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

type CreateQuoteInput struct {
	ClientID      uint        `json:"client_id"`
	Items         []ItemInput `json:"items"`
	DiscountType  string      `json:"discount_type"`
	DiscountValue float64     `json:"discount_value"`
	Notes         string      `json:"notes"`
}

type UpdateItemsInput struct {
	Items         []ItemInput `json:"items"`
	DiscountType  string      `json:"discount_type"`
	DiscountValue float64     `json:"discount_value"`
	Notes         string      `json:"notes"`
}

// QuoteService owns the quote lifecycle: creation, item mutation under
// draft, and the draft -> sent -> approved|rejected state machine.
type QuoteService struct {
	DB         *gorm.DB
	Tokens     *TokenService
	Dispatcher mail.Dispatcher
	BaseURL    string

	now func() time.Time
}

func NewQuoteService(db *gorm.DB, tokens *TokenService, dispatcher mail.Dispatcher, baseURL string) *QuoteService {
	return &QuoteService{DB: db, Tokens: tokens, Dispatcher: dispatcher, BaseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

// ComputeTotals returns subtotal and total for a set of items under a
// quote-level discount. Percentage discounts apply to the subtotal; fixed
// discounts are capped at the subtotal so totals never go negative.
func ComputeTotals(items []models.QuoteItem, discountType string, discountValue float64) (subtotal, total float64) {
	for _, it := range items {
		subtotal += it.LineTotal()
	}
	discount := 0.0
	switch discountType {
	case models.DiscountPercentage:
		discount = subtotal * (discountValue / 100)
	case models.DiscountFixed:
		discount = discountValue
		if discount > subtotal {
			discount = subtotal
		}
	}
	total = subtotal - discount
	return subtotal, total
}

func (s *QuoteService) buildItems(ctx context.Context, tx *gorm.DB, inputs []ItemInput) ([]models.QuoteItem, error) {
	items := make([]models.QuoteItem, 0, len(inputs))
	for i, in := range inputs {
		desc, price := in.Description, in.UnitPrice
		if in.ServiceID != 0 {
			var svc models.Service
			if err := tx.WithContext(ctx).First(&svc, in.ServiceID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, fmt.Errorf("service %d: %w", in.ServiceID, ErrNotFound)
				}
				return nil, err
			}
			if desc == "" {
				desc = svc.Name
			}
			if price == 0 {
				price = svc.BasePrice
			}
		}
		items = append(items, models.QuoteItem{
			Position:    i,
			Description: desc,
			UnitPrice:   price,
			Quantity:    in.Quantity,
		})
	}
	return items, nil
}

// nextNumber allocates a per-year sequential quote number, QC-2026-0001.
// The sequence continues from the highest number already issued for the
// year, so deleting a draft never frees a value that would collide with
// a surviving quote. attempt bumps the candidate past numbers a
// concurrent creator just claimed.
func nextNumber(tx *gorm.DB, now time.Time, attempt int) (string, error) {
	year := now.Format("2006")
	prefix := "QC-" + year + "-"
	var last string
	err := tx.Model(&models.Quote{}).
		Where("number LIKE ?", prefix+"%").
		Select("number").Order("number desc").Limit(1).Scan(&last).Error
	if err != nil {
		return "", err
	}
	seq := 0
	if last != "" {
		n, convErr := strconv.Atoi(strings.TrimPrefix(last, prefix))
		if convErr != nil {
			return "", fmt.Errorf("malformed quote number %q", last)
		}
		seq = n
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1+attempt), nil
}

func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// Create persists a new draft quote with its items and computed totals.
func (s *QuoteService) Create(ctx context.Context, in CreateQuoteInput) (models.Quote, error) {
	var client models.Client
	if err := s.DB.WithContext(ctx).First(&client, in.ClientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Quote{}, fmt.Errorf("client %d: %w", in.ClientID, ErrNotFound)
		}
		return models.Quote{}, err
	}
	if in.DiscountType == "" {
		in.DiscountType = models.DiscountNone
	}

	// The unique index on number is the arbiter under concurrent
	// creation. Each attempt runs in its own transaction so a collision
	// rolls back cleanly before the next try sees the fresh maximum.
	var quote models.Quote
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			items, buildErr := s.buildItems(ctx, tx, in.Items)
			if buildErr != nil {
				return buildErr
			}
			subtotal, total := ComputeTotals(items, in.DiscountType, in.DiscountValue)
			number, numErr := nextNumber(tx, s.now(), attempt)
			if numErr != nil {
				return numErr
			}
			quote = models.Quote{
				Number:        number,
				ClientID:      client.ID,
				Status:        models.StatusDraft,
				Items:         items,
				DiscountType:  in.DiscountType,
				DiscountValue: in.DiscountValue,
				Subtotal:      subtotal,
				Total:         total,
				Notes:         in.Notes,
				IssueDate:     s.now(),
			}
			return tx.Create(&quote).Error
		})
		if err == nil {
			break
		}
		if !isDuplicateErr(err) {
			return models.Quote{}, err
		}
	}
	if err != nil {
		return models.Quote{}, fmt.Errorf("could not allocate quote number: %w", err)
	}
	quote.Client = client
	logrus.WithFields(logrus.Fields{"quote_id": quote.ID, "number": quote.Number, "total": quote.Total}).Info("quote created")
	return quote, nil
}

// Get loads a quote with its client and ordered items.
func (s *QuoteService) Get(ctx context.Context, id uint) (models.Quote, error) {
	var quote models.Quote
	err := s.DB.WithContext(ctx).Preload("Items", itemOrder).Preload("Client").First(&quote, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Quote{}, fmt.Errorf("quote %d: %w", id, ErrNotFound)
	}
	return quote, err
}

// lockedQuote loads a quote inside tx, taking a row lock on postgres.
// sqlite serializes writers on its own.
func (s *QuoteService) lockedQuote(ctx context.Context, tx *gorm.DB, id uint) (models.Quote, error) {
	q := tx.WithContext(ctx)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var quote models.Quote
	if err := q.First(&quote, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Quote{}, fmt.Errorf("quote %d: %w", id, ErrNotFound)
		}
		return models.Quote{}, err
	}
	return quote, nil
}

// UpdateItems replaces the line items of a draft quote and recomputes its
// totals atomically. Any other status fails with InvalidStateError.
func (s *QuoteService) UpdateItems(ctx context.Context, id uint, in UpdateItemsInput) (models.Quote, error) {
	if in.DiscountType == "" {
		in.DiscountType = models.DiscountNone
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.lockedQuote(ctx, tx, id)
		if err != nil {
			return err
		}
		if quote.Status != models.StatusDraft {
			return &InvalidStateError{QuoteID: id, From: quote.Status, To: models.StatusDraft}
		}
		items, err := s.buildItems(ctx, tx, in.Items)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].QuoteID = id
		}
		subtotal, total := ComputeTotals(items, in.DiscountType, in.DiscountValue)

		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteItem{}).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Quote{}).Where("id = ?", id).Updates(map[string]any{
			"discount_type":  in.DiscountType,
			"discount_value": in.DiscountValue,
			"subtotal":       subtotal,
			"total":          total,
			"notes":          in.Notes,
			"updated_at":     s.now(),
		}).Error
	})
	if err != nil {
		return models.Quote{}, err
	}
	return s.Get(ctx, id)
}

// claimDispatch inserts the idempotency key row. A second claim for the
// same key reports claimed=false without error: someone else already
// sent, or is sending right now.
func (s *QuoteService) claimDispatch(tx *gorm.DB, key string, quoteID uint, recipient string) (bool, error) {
	entry := models.EmailLog{
		IdempotencyKey: key,
		QuoteID:        quoteID,
		Recipient:      recipient,
		SentAt:         s.now(),
	}
	err := tx.Create(&entry).Error
	if err == nil {
		return true, nil
	}
	if isDuplicateErr(err) {
		return false, nil
	}
	return false, err
}

func (s *QuoteService) releaseDispatch(ctx context.Context, key string) {
	if err := s.DB.WithContext(ctx).Where("idempotency_key = ?", key).Delete(&models.EmailLog{}).Error; err != nil {
		logrus.WithError(err).WithField("key", key).Error("could not release dispatch claim")
	}
}

// ViewLink returns the public URL for a token value.
func (s *QuoteService) ViewLink(token string) string {
	return s.BaseURL + "/q/" + token
}

// MarkSent transitions draft -> sent: ensures a live access token,
// renders the PDF, emails the client, and only then flips the status.
// A quote already sent is a no-op success returning its live token, so a
// retry never emails twice. A failed dispatch leaves the quote in draft
// and returns DispatchError; the next attempt starts clean.
//
// The status check and the dispatch claim happen together under the row
// lock. A caller that finds the claim taken while the quote is still
// draft has hit another send in flight; it fails with ErrSendPending
// instead of marking the quote sent on someone else's unfinished work.
func (s *QuoteService) MarkSent(ctx context.Context, id uint) (models.AccessToken, error) {
	key := fmt.Sprintf("quote:%d:%s", id, models.StatusSent)
	alreadySent := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.lockedQuote(ctx, tx, id)
		if err != nil {
			return err
		}
		switch quote.Status {
		case models.StatusSent:
			alreadySent = true
			return nil
		case models.StatusDraft:
			// proceed
		default:
			return &InvalidStateError{QuoteID: id, From: quote.Status, To: models.StatusSent}
		}
		var itemCount int64
		if err := tx.Model(&models.QuoteItem{}).Where("quote_id = ?", id).Count(&itemCount).Error; err != nil {
			return err
		}
		if itemCount == 0 {
			return ErrNoItems
		}
		var client models.Client
		if err := tx.First(&client, quote.ClientID).Error; err != nil {
			return err
		}
		claimed, err := s.claimDispatch(tx, key, id, client.Email)
		if err != nil {
			return err
		}
		if !claimed {
			logrus.WithField("quote_id", id).Warn("dispatch claim held while quote still draft")
			return ErrSendPending
		}
		return nil
	})
	if err != nil {
		return models.AccessToken{}, err
	}
	if alreadySent {
		return s.Tokens.Issue(ctx, id)
	}

	// The claim is ours; from here every failure path releases it so a
	// retry starts clean.
	quote, err := s.Get(ctx, id)
	if err != nil {
		s.releaseDispatch(ctx, key)
		return models.AccessToken{}, err
	}
	tok, err := s.Tokens.Issue(ctx, id)
	if err != nil {
		s.releaseDispatch(ctx, key)
		return models.AccessToken{}, err
	}
	if err := s.dispatchQuote(ctx, quote, tok); err != nil {
		s.releaseDispatch(ctx, key)
		return models.AccessToken{}, &DispatchError{QuoteID: id, Err: err}
	}
	if err := s.finalizeSent(ctx, id); err != nil {
		return models.AccessToken{}, err
	}
	logrus.WithFields(logrus.Fields{"quote_id": id, "number": quote.Number, "to": quote.Client.Email}).Info("quote sent")
	return tok, nil
}

func (s *QuoteService) dispatchQuote(ctx context.Context, quote models.Quote, tok models.AccessToken) error {
	pdfBytes, err := pdf.QuotePDF(Snapshot(quote))
	if err != nil {
		return err
	}
	html, err := mail.BuildQuoteEmailHTML(mail.EmailData{
		Quote:    quote,
		Client:   quote.Client,
		ViewLink: s.ViewLink(tok.Token),
	})
	if err != nil {
		return err
	}
	return s.Dispatcher.Send(ctx, mail.Message{
		To:          quote.Client.Email,
		Subject:     "Orcamento " + quote.Number,
		HTML:        html,
		PDF:         pdfBytes,
		PDFFilename: quote.Number + ".pdf",
	})
}

// finalizeSent flips draft -> sent with a conditional update; a quote
// already past draft is left alone.
func (s *QuoteService) finalizeSent(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Model(&models.Quote{}).
		Where("id = ? AND status = ?", id, models.StatusDraft).
		Updates(map[string]any{"status": models.StatusSent, "updated_at": s.now()}).Error
}

// MarkApproved transitions sent -> approved.
func (s *QuoteService) MarkApproved(ctx context.Context, id uint) error {
	return s.resolve(ctx, id, models.StatusApproved)
}

// MarkRejected transitions sent -> rejected.
func (s *QuoteService) MarkRejected(ctx context.Context, id uint) error {
	return s.resolve(ctx, id, models.StatusRejected)
}

func (s *QuoteService) resolve(ctx context.Context, id uint, target string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.lockedQuote(ctx, tx, id)
		if err != nil {
			return err
		}
		if quote.Status == target {
			return nil // idempotent no-op
		}
		if quote.Status != models.StatusSent {
			return &InvalidStateError{QuoteID: id, From: quote.Status, To: target}
		}
		return tx.Model(&models.Quote{}).Where("id = ? AND status = ?", id, models.StatusSent).
			Updates(map[string]any{"status": target, "updated_at": s.now()}).Error
	})
	if err == nil {
		logrus.WithFields(logrus.Fields{"quote_id": id, "status": target}).Info("quote resolved")
	}
	return err
}

// Delete removes a draft quote and its items. Quotes past draft are
// part of the audit trail and cannot be deleted.
func (s *QuoteService) Delete(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.lockedQuote(ctx, tx, id)
		if err != nil {
			return err
		}
		if quote.Status != models.StatusDraft {
			return &InvalidStateError{QuoteID: id, From: quote.Status, To: "deleted"}
		}
		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quote_id = ?", id).Delete(&models.AccessToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Quote{}, id).Error
	})
}

// Snapshot maps a quote to the read-only structure the PDF renderer
// consumes.
func Snapshot(q models.Quote) pdf.QuoteData {
	items := make([]pdf.ItemData, 0, len(q.Items))
	for _, it := range q.Items {
		items = append(items, pdf.ItemData{Description: it.Description, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return pdf.QuoteData{
		Number:         q.Number,
		Status:         q.Status,
		IssueDate:      q.IssueDate,
		Client:         pdf.ClientData{Name: q.Client.Name, Company: q.Client.Company},
		Items:          items,
		Subtotal:       q.Subtotal,
		DiscountAmount: q.Subtotal - q.Total,
		Total:          q.Total,
	}
}
