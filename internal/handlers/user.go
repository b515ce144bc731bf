package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/quotecraft/quotecraft/internal/auth"
	"github.com/quotecraft/quotecraft/internal/httpx"
	"github.com/quotecraft/quotecraft/internal/models"
	"github.com/quotecraft/quotecraft/internal/validation"
)

// UserHandler manages operator accounts. All routes are admin-only.
type UserHandler struct {
	DB *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

type userRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// List: GET /users – password hashes never leave the model (json:"-").
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.DB.Order("username").Find(&users).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_users", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": users, "total": len(users)})
}

// Create: POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(r, &req, func(f map[string]string) {
		req.Username, req.Email, req.Password = f["username"], f["email"], f["password"]
		req.DisplayName, req.Role = f["display_name"], f["role"]
	}) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}
	v := validation.Violations{}
	validation.Required("username", req.Username, v)
	validation.Required("password", req.Password, v)
	validation.Email("email", req.Email, v)
	validation.OneOf("role", req.Role, []string{models.RoleAdmin, models.RoleUser}, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_user", nil)
		return
	}
	display := req.DisplayName
	if display == "" {
		display = req.Username
	}
	user := models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		DisplayName:  validation.Sanitize(display),
		Role:         req.Role,
		Active:       true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "user_exists_or_invalid", nil)
		return
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username, "role": user.Role}).Info("user created")
	httpx.JSON(w, http.StatusCreated, user)
}

// Update: POST /users/update?id=... – a non-empty password field rotates
// the hash; other fields update in place.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_user", nil)
		return
	}
	var req userRequest
	if !decodeBody(r, &req, func(f map[string]string) {
		req.Email, req.Password = f["email"], f["password"]
		req.DisplayName, req.Role = f["display_name"], f["role"]
	}) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	v := validation.Violations{}
	if req.Email != "" {
		validation.Email("email", req.Email, v)
		user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if req.Role != "" {
		validation.OneOf("role", req.Role, []string{models.RoleAdmin, models.RoleUser}, v)
		if req.Role != models.RoleAdmin && user.Role == models.RoleAdmin && h.isLastAdmin(user.ID) {
			httpx.JSONError(w, http.StatusConflict, "last_admin", nil)
			return
		}
		user.Role = req.Role
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	if req.DisplayName != "" {
		user.DisplayName = validation.Sanitize(req.DisplayName)
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_user", nil)
			return
		}
		user.PasswordHash = hash
	}
	if err := h.DB.Save(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_user", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Toggle: POST /users/toggle?id=... – the last active admin cannot be
// deactivated.
func (h *UserHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_user", nil)
		return
	}
	if user.Active && user.Role == models.RoleAdmin && h.isLastAdmin(user.ID) {
		httpx.JSONError(w, http.StatusConflict, "last_admin", nil)
		return
	}
	if err := h.DB.Model(&user).Update("active", !user.Active).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_user", nil)
		return
	}
	user.Active = !user.Active
	httpx.JSON(w, http.StatusOK, user)
}

// Delete: POST /users/delete?id=...
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_user", nil)
		return
	}
	if user.Role == models.RoleAdmin && user.Active && h.isLastAdmin(user.ID) {
		httpx.JSONError(w, http.StatusConflict, "last_admin", nil)
		return
	}
	if err := h.DB.Delete(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_user", nil)
		return
	}
	logrus.WithField("user_id", id).Info("user deleted")
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// isLastAdmin reports whether no other active admin exists besides id.
func (h *UserHandler) isLastAdmin(id uint) bool {
	var count int64
	if err := h.DB.Model(&models.User{}).
		Where("role = ? AND active = ? AND id != ?", models.RoleAdmin, true, id).
		Count(&count).Error; err != nil {
		return true // fail safe: refuse the demotion when in doubt
	}
	return count == 0
}
