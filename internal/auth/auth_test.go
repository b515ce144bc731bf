package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sessionRequest(t *testing.T, id Identity) *http.Request {
	t.Helper()
	w := httptest.NewRecorder()
	CreateSession(w, id)
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	return req
}

func TestSessionRoundtrip(t *testing.T) {
	req := sessionRequest(t, Identity{UserID: 7, Username: "maria:admin", Admin: true})
	got, ok := ParseSession(req)
	if !ok {
		t.Fatal("valid session not accepted")
	}
	if got.UserID != 7 || got.Username != "maria:admin" || !got.Admin {
		t.Fatalf("identity mangled: %+v", got)
	}
}

func TestTamperedSessionRejected(t *testing.T) {
	req := sessionRequest(t, Identity{UserID: 1, Username: "maria", Admin: false})
	c := req.Cookies()[0]

	// Promote the role without re-signing.
	tampered := strings.Replace(c.Value, ":user.", ":admin.", 1)
	if tampered == c.Value {
		t.Fatal("test expects the role inside the payload")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: c.Name, Value: tampered})
	if _, ok := ParseSession(req); ok {
		t.Fatal("tampered cookie accepted")
	}
}

func TestMissingSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := ParseSession(req); ok {
		t.Fatal("request without cookie should not parse")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword("s3cret", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPassword("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Middleware(RequireAdmin(next))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, sessionRequest(t, Identity{UserID: 2, Username: "joao", Admin: false}))
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin: expected 403 got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, sessionRequest(t, Identity{UserID: 1, Username: "maria", Admin: true}))
	if w.Code != http.StatusNoContent {
		t.Fatalf("admin: expected 204 got %d", w.Code)
	}
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Middleware(RequireAuth(next))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401 got %d", w.Code)
	}
}
