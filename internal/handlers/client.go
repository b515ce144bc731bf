package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/quotecraft/quotecraft/internal/httpx"
	"github.com/quotecraft/quotecraft/internal/models"
	"github.com/quotecraft/quotecraft/internal/validation"
)

type ClientHandler struct {
	DB *gorm.DB
}

func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{DB: db}
}

type clientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Address string `json:"address"`
}

func (req *clientRequest) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.Required("email", req.Email, v)
	if req.Email != "" {
		validation.Email("email", req.Email, v)
	}
	if req.Phone != "" {
		validation.Phone("phone", req.Phone, v)
	}
	return v
}

func (req *clientRequest) sanitize() {
	req.Name = validation.Sanitize(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = validation.Sanitize(req.Phone)
	req.Company = validation.Sanitize(req.Company)
	req.Address = validation.Sanitize(req.Address)
}

// List: GET /clients – optional ?q= filters by name or email.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	dbq := h.DB.Order("name")
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(email) LIKE ?", like, like)
	}
	var clients []models.Client
	if err := dbq.Find(&clients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_clients", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": clients, "total": len(clients)})
}

// Create: POST /clients – JSON or form.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !decodeBody(r, &req, func(f map[string]string) {
		req.Name, req.Email, req.Phone = f["name"], f["email"], f["phone"]
		req.Company, req.Address = f["company"], f["address"]
	}) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	req.sanitize()
	if v := req.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	client := models.Client{Name: req.Name, Email: req.Email, Phone: req.Phone, Company: req.Company, Address: req.Address}
	if err := h.DB.Create(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "client_exists_or_invalid", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

// Update: POST /clients/update?id=...
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var client models.Client
	if err := h.DB.First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "client_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_client", nil)
		return
	}
	var req clientRequest
	if !decodeBody(r, &req, func(f map[string]string) {
		req.Name, req.Email, req.Phone = f["name"], f["email"], f["phone"]
		req.Company, req.Address = f["company"], f["address"]
	}) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	req.sanitize()
	if v := req.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	client.Name, client.Email, client.Phone = req.Name, req.Email, req.Phone
	client.Company, client.Address = req.Company, req.Address
	if err := h.DB.Save(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "client_update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Delete: POST /clients/delete?id=... – refused while quotes reference
// the client.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var quoteCount int64
	if err := h.DB.Model(&models.Quote{}).Where("client_id = ?", id).Count(&quoteCount).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_client", nil)
		return
	}
	if quoteCount > 0 {
		httpx.JSONError(w, http.StatusConflict, "client_has_quotes", map[string]any{"quotes": quoteCount})
		return
	}
	res := h.DB.Delete(&models.Client{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_client", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "client_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// decodeBody parses a JSON body into dst, or falls back to form fields
// handed to the fallback func as a flat map.
func decodeBody(r *http.Request, dst any, formFallback func(map[string]string)) bool {
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		return json.NewDecoder(r.Body).Decode(dst) == nil
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	fields := make(map[string]string, len(r.Form))
	for k := range r.Form {
		fields[k] = r.Form.Get(k)
	}
	formFallback(fields)
	return true
}

func idParam(r *http.Request) (uint, bool) {
	v := r.URL.Query().Get("id")
	if v == "" && r.ParseForm() == nil {
		v = r.Form.Get("id")
	}
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
