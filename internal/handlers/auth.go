package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/quotecraft/quotecraft/internal/auth"
	"github.com/quotecraft/quotecraft/internal/config"
	"github.com/quotecraft/quotecraft/internal/httpx"
	"github.com/quotecraft/quotecraft/internal/models"
)

type AuthHandler struct {
	DB  *gorm.DB
	Cfg config.Config
}

func NewAuthHandler(db *gorm.DB, cfg config.Config) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func decodeLogin(r *http.Request) (loginRequest, bool) {
	var req loginRequest
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, false
		}
		return req, true
	}
	if err := r.ParseForm(); err != nil {
		return req, false
	}
	req.Username = r.Form.Get("username")
	req.Password = r.Form.Get("password")
	return req, true
}

// Login: POST /login. Database users take precedence; the configured
// admin credentials remain the bootstrap login for a fresh install.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLogin(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	if req.Username == "" || req.Password == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_credentials", nil)
		return
	}

	var user models.User
	err := h.DB.Where("username = ? AND active = ?", req.Username, true).First(&user).Error
	switch {
	case err == nil:
		if !auth.CheckPassword(req.Password, user.PasswordHash) {
			logrus.WithField("username", req.Username).Warn("login failed, invalid credentials")
			httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
			return
		}
		id := auth.Identity{UserID: user.ID, Username: user.Username, Admin: user.Role == models.RoleAdmin}
		auth.CreateSession(w, id)
		logrus.WithField("username", user.Username).Info("login successful")
		httpx.JSON(w, http.StatusOK, map[string]any{"username": id.Username, "admin": id.Admin})
	case errors.Is(err, gorm.ErrRecordNotFound):
		if h.Cfg.AdminPasswordHash == "" {
			logrus.Warn("login failed, no admin credentials configured")
			httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
			return
		}
		if req.Username != h.Cfg.AdminUsername || !auth.CheckPassword(req.Password, h.Cfg.AdminPasswordHash) {
			logrus.WithField("username", req.Username).Warn("login failed, invalid credentials")
			httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
			return
		}
		id := auth.Identity{Username: h.Cfg.AdminUsername, Admin: true}
		auth.CreateSession(w, id)
		logrus.WithField("username", id.Username).Info("login successful")
		httpx.JSON(w, http.StatusOK, map[string]any{"username": id.Username, "admin": true})
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "login_failed", nil)
	}
}

// Logout: POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		logrus.WithField("username", id.Username).Info("logout")
	}
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
