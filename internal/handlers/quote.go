package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/quotecraft/quotecraft/internal/httpx"
	"github.com/quotecraft/quotecraft/internal/models"
	"github.com/quotecraft/quotecraft/internal/pdf"
	"github.com/quotecraft/quotecraft/internal/services"
	"github.com/quotecraft/quotecraft/internal/validation"
)

type QuoteHandler struct {
	DB     *gorm.DB
	Svc    *services.QuoteService
	Tokens *services.TokenService
}

func NewQuoteHandler(db *gorm.DB, svc *services.QuoteService, tokens *services.TokenService) *QuoteHandler {
	return &QuoteHandler{DB: db, Svc: svc, Tokens: tokens}
}

func validateItems(items []services.ItemInput, v validation.Violations) {
	if len(items) == 0 {
		v["items"] = "required"
		return
	}
	for _, it := range items {
		if it.ServiceID == 0 {
			validation.Required("items.description", it.Description, v)
		}
		validation.NonNegativeFloat("items.unit_price", it.UnitPrice, v)
		validation.PositiveInt("items.quantity", it.Quantity, v)
	}
}

func validateDiscount(discountType string, value float64, v validation.Violations) {
	if discountType == "" {
		return
	}
	validation.OneOf("discount_type", discountType, []string{models.DiscountNone, models.DiscountPercentage, models.DiscountFixed}, v)
	validation.NonNegativeFloat("discount_value", value, v)
	if discountType == models.DiscountPercentage && value > 100 {
		v["discount_value"] = "out_of_range"
	}
}

// writeServiceError maps lifecycle and token errors onto the admin API
// responses. The public path has its own uniform mapping.
func writeServiceError(w http.ResponseWriter, err error) {
	var dispatch *services.DispatchError
	var state *services.InvalidStateError
	switch {
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.As(err, &state):
		httpx.JSONError(w, http.StatusConflict, "invalid_state", map[string]string{"from": state.From, "to": state.To})
	case errors.Is(err, services.ErrNoItems):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"items": "required"})
	case errors.Is(err, services.ErrSendPending):
		httpx.JSONError(w, http.StatusConflict, "send_in_progress", nil)
	case errors.As(err, &dispatch):
		httpx.JSONError(w, http.StatusBadGateway, "email_failed", map[string]string{"reason": dispatch.Err.Error()})
	case errors.Is(err, services.ErrTokenNotFound):
		httpx.JSONError(w, http.StatusNotFound, "token_not_found", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// List: GET /quotes – filters: ?status=, ?client_id=, ?q= (number match),
// paginated like the other list endpoints.
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	dbq := h.DB.Model(&models.Quote{})
	if status := r.URL.Query().Get("status"); status != "" && models.ValidStatus(status) {
		dbq = dbq.Where("status = ?", status)
	}
	if v := r.URL.Query().Get("client_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			dbq = dbq.Where("client_id = ?", id)
		}
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		dbq = dbq.Where("number LIKE ?", "%"+strings.ToUpper(q)+"%")
	}
	var total int64
	dbq.Count(&total)
	var quotes []models.Quote
	if err := dbq.Preload("Items").Preload("Client").Order("id desc").Limit(limit).Offset(offset).Find(&quotes).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_quotes", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": quotes, "total": total, "limit": limit, "offset": offset})
}

// Get: GET /quotes/get?id=...
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	quote, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// Create: POST /quotes.
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateQuoteInput
	if !decodeBody(r, &req, func(f map[string]string) {
		if id, err := strconv.Atoi(f["client_id"]); err == nil {
			req.ClientID = uint(id)
		}
		// Form fallback carries a single item.
		if f["description"] != "" || f["service_id"] != "" {
			item := services.ItemInput{Description: f["description"], Quantity: 1}
			if sid, err := strconv.Atoi(f["service_id"]); err == nil {
				item.ServiceID = uint(sid)
			}
			if p, err := strconv.ParseFloat(f["unit_price"], 64); err == nil {
				item.UnitPrice = p
			}
			if q, err := strconv.Atoi(f["quantity"]); err == nil && q > 0 {
				item.Quantity = q
			}
			req.Items = append(req.Items, item)
		}
	}) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	v := validation.Violations{}
	if req.ClientID == 0 {
		v["client_id"] = "required"
	}
	validateItems(req.Items, v)
	validateDiscount(req.DiscountType, req.DiscountValue, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	req.Notes = validation.Sanitize(req.Notes)
	quote, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

// UpdateItems: POST /quotes/items?id=... – draft only.
func (h *QuoteHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var req services.UpdateItemsInput
	if !decodeBody(r, &req, func(map[string]string) {}) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	v := validation.Violations{}
	validateItems(req.Items, v)
	validateDiscount(req.DiscountType, req.DiscountValue, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	req.Notes = validation.Sanitize(req.Notes)
	quote, err := h.Svc.UpdateItems(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// Send: POST /quotes/send?id=... – the draft -> sent transition.
// Replays on an already-sent quote return the live token without a
// second email.
func (h *QuoteHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	tok, err := h.Svc.MarkSent(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":     models.StatusSent,
		"view_link":  h.Svc.ViewLink(tok.Token),
		"expires_at": tok.ExpiresAt,
	})
}

// Approve: POST /quotes/approve?id=...
func (h *QuoteHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Svc.MarkApproved, models.StatusApproved)
}

// Reject: POST /quotes/reject?id=...
func (h *QuoteHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Svc.MarkRejected, models.StatusRejected)
}

func (h *QuoteHandler) resolve(w http.ResponseWriter, r *http.Request, fn func(context.Context, uint) error, target string) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	if err := fn(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": target})
}

// Delete: POST /quotes/delete?id=... – draft only.
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// PDF: GET /quotes/pdf?id=... – streams the rendered document.
func (h *QuoteHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	quote, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	data, err := pdf.QuotePDF(services.Snapshot(quote))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_generation_failed", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+quote.Number+`.pdf"`)
	_, _ = w.Write(data)
}

// RevokeToken: POST /quotes/revoke-token?id=... – invalidates every
// public link for the quote.
func (h *QuoteHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	if err := h.Tokens.RevokeForQuote(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
