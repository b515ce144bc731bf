package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/quotecraft/quotecraft/internal/auth"
	"github.com/quotecraft/quotecraft/internal/config"
	"github.com/quotecraft/quotecraft/internal/models"
)

func createUser(t *testing.T, h *UserHandler, body string) models.User {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var user models.User
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return user
}

func TestUserCreateAndLogin(t *testing.T) {
	conn := setupTestDB(t)
	uh := NewUserHandler(conn)
	user := createUser(t, uh, `{"username":"maria","email":"maria@example.com","password":"s3cret","role":"admin"}`)
	if user.Role != models.RoleAdmin {
		t.Fatalf("unexpected role %q", user.Role)
	}

	ah := NewAuthHandler(conn, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"maria","password":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ah.Login(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login set no session cookie")
	}

	// Wrong password is rejected.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"maria","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	ah.Login(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestConfigAdminLogin(t *testing.T) {
	conn := setupTestDB(t)
	hash, err := auth.HashPassword("letmein")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ah := NewAuthHandler(conn, config.Config{AdminUsername: "admin", AdminPasswordHash: hash})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"admin","password":"letmein"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ah.Login(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["admin"] != true {
		t.Fatalf("config admin should have admin role: %v", resp)
	}
}

func TestUserPasswordHashNeverSerialized(t *testing.T) {
	conn := setupTestDB(t)
	uh := NewUserHandler(conn)
	createUser(t, uh, `{"username":"joao","email":"joao@example.com","password":"s3cret"}`)

	w := httptest.NewRecorder()
	uh.List(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	if strings.Contains(w.Body.String(), "password") || strings.Contains(w.Body.String(), "$2a$") {
		t.Fatal("user listing leaks password material")
	}
}

func TestLastAdminGuard(t *testing.T) {
	conn := setupTestDB(t)
	uh := NewUserHandler(conn)
	admin := createUser(t, uh, `{"username":"maria","email":"maria@example.com","password":"s3cret","role":"admin"}`)

	// Deactivating the only admin is refused.
	w := httptest.NewRecorder()
	uh.Toggle(w, httptest.NewRequest(http.MethodPost, "/users/toggle?id="+strconv.Itoa(int(admin.ID)), nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", w.Code)
	}

	// Demoting the only admin is refused.
	req := httptest.NewRequest(http.MethodPost, "/users/update?id="+strconv.Itoa(int(admin.ID)), strings.NewReader(`{"role":"user"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	uh.Update(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}

	// With a second admin around, the first can step down.
	createUser(t, uh, `{"username":"joao","email":"joao@example.com","password":"s3cret","role":"admin"}`)
	req = httptest.NewRequest(http.MethodPost, "/users/update?id="+strconv.Itoa(int(admin.ID)), strings.NewReader(`{"role":"user"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	uh.Update(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
}
