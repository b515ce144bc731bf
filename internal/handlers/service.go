package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/quotecraft/quotecraft/internal/httpx"
	"github.com/quotecraft/quotecraft/internal/models"
	"github.com/quotecraft/quotecraft/internal/validation"
)

// ServiceHandler manages the service catalog.
type ServiceHandler struct {
	DB *gorm.DB
}

func NewServiceHandler(db *gorm.DB) *ServiceHandler {
	return &ServiceHandler{DB: db}
}

type serviceRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BasePrice   float64 `json:"base_price"`
	Category    string  `json:"category"`
}

func (req *serviceRequest) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.NonNegativeFloat("base_price", req.BasePrice, v)
	return v
}

func (req *serviceRequest) sanitize() {
	req.Name = validation.Sanitize(req.Name)
	req.Description = validation.Sanitize(req.Description)
	req.Category = validation.Sanitize(req.Category)
}

func parseServiceForm(req *serviceRequest) func(map[string]string) {
	return func(f map[string]string) {
		req.Name, req.Description, req.Category = f["name"], f["description"], f["category"]
		if p, err := strconv.ParseFloat(f["base_price"], 64); err == nil {
			req.BasePrice = p
		}
	}
}

// List: GET /services – active entries only unless ?all=1.
func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	dbq := h.DB.Order("name")
	if r.URL.Query().Get("all") != "1" {
		dbq = dbq.Where("active = ?", true)
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(category) LIKE ?", like, like)
	}
	var services []models.Service
	if err := dbq.Find(&services).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_services", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": services, "total": len(services)})
}

// Create: POST /services.
func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if !decodeBody(r, &req, parseServiceForm(&req)) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	req.sanitize()
	if v := req.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	svc := models.Service{Name: req.Name, Description: req.Description, BasePrice: req.BasePrice, Category: req.Category, Active: true}
	if err := h.DB.Create(&svc).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_service", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, svc)
}

// Update: POST /services/update?id=...
func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var svc models.Service
	if err := h.DB.First(&svc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "service_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_service", nil)
		return
	}
	var req serviceRequest
	if !decodeBody(r, &req, parseServiceForm(&req)) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	req.sanitize()
	if v := req.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	svc.Name, svc.Description, svc.BasePrice, svc.Category = req.Name, req.Description, req.BasePrice, req.Category
	if err := h.DB.Save(&svc).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_service", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, svc)
}

// Toggle: POST /services/toggle?id=... – flips the active flag, or sets
// it explicitly with ?active=true|false.
func (h *ServiceHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var svc models.Service
	if err := h.DB.First(&svc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "service_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_service", nil)
		return
	}
	target := !svc.Active
	if v := r.URL.Query().Get("active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			target = b
		}
	}
	if err := h.DB.Model(&svc).Update("active", target).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_service", nil)
		return
	}
	svc.Active = target
	httpx.JSON(w, http.StatusOK, svc)
}

// Delete: POST /services/delete?id=... – permanent removal. Quotes keep
// their copied prices, so this never rewrites history.
func (h *ServiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	res := h.DB.Delete(&models.Service{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_service", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "service_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
