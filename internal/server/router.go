package server

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/quotecraft/quotecraft/internal/auth"
	"github.com/quotecraft/quotecraft/internal/config"
	"github.com/quotecraft/quotecraft/internal/handlers"
	"github.com/quotecraft/quotecraft/internal/httpx"
	"github.com/quotecraft/quotecraft/internal/mail"
	"github.com/quotecraft/quotecraft/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg config.Config, dispatcher mail.Dispatcher) http.Handler {
	mux := http.NewServeMux()

	auth.SetSecret(cfg.SessionSecret)

	tokens := services.NewTokenService(db, cfg.TokenExpiryDays)
	quoteSvc := services.NewQuoteService(db, tokens, dispatcher, cfg.BaseURL)

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints
	ah := handlers.NewAuthHandler(db, cfg)
	mux.Handle("/login", methodPost(http.HandlerFunc(ah.Login)))
	mux.Handle("/logout", auth.Middleware(methodPost(http.HandlerFunc(ah.Logout))))

	protect := func(h http.Handler) http.Handler { return auth.Middleware(auth.RequireAuth(h)) }
	adminOnly := func(h http.Handler) http.Handler { return auth.Middleware(auth.RequireAuth(auth.RequireAdmin(h))) }

	// Client endpoints
	ch := handlers.NewClientHandler(db)
	mux.Handle("/clients", protect(listCreate(ch.List, ch.Create)))
	mux.Handle("/clients/update", protect(methodPost(http.HandlerFunc(ch.Update))))
	mux.Handle("/clients/delete", protect(methodPost(http.HandlerFunc(ch.Delete))))

	// Service catalog endpoints
	sh := handlers.NewServiceHandler(db)
	mux.Handle("/services", protect(listCreate(sh.List, sh.Create)))
	mux.Handle("/services/update", protect(methodPost(http.HandlerFunc(sh.Update))))
	mux.Handle("/services/toggle", protect(methodPost(http.HandlerFunc(sh.Toggle))))
	mux.Handle("/services/delete", protect(methodPost(http.HandlerFunc(sh.Delete))))

	// Quote endpoints
	qh := handlers.NewQuoteHandler(db, quoteSvc, tokens)
	mux.Handle("/quotes", protect(listCreate(qh.List, qh.Create)))
	mux.Handle("/quotes/get", protect(http.HandlerFunc(qh.Get)))
	mux.Handle("/quotes/items", protect(methodPost(http.HandlerFunc(qh.UpdateItems))))
	mux.Handle("/quotes/send", protect(methodPost(http.HandlerFunc(qh.Send))))
	mux.Handle("/quotes/approve", protect(methodPost(http.HandlerFunc(qh.Approve))))
	mux.Handle("/quotes/reject", protect(methodPost(http.HandlerFunc(qh.Reject))))
	mux.Handle("/quotes/delete", protect(methodPost(http.HandlerFunc(qh.Delete))))
	mux.Handle("/quotes/pdf", protect(http.HandlerFunc(qh.PDF)))
	mux.Handle("/quotes/revoke-token", protect(methodPost(http.HandlerFunc(qh.RevokeToken))))

	// User endpoints (admin role required)
	uh := handlers.NewUserHandler(db)
	mux.Handle("/users", adminOnly(listCreate(uh.List, uh.Create)))
	mux.Handle("/users/update", adminOnly(methodPost(http.HandlerFunc(uh.Update))))
	mux.Handle("/users/toggle", adminOnly(methodPost(http.HandlerFunc(uh.Toggle))))
	mux.Handle("/users/delete", adminOnly(methodPost(http.HandlerFunc(uh.Delete))))

	// Public tokenized quote view, no auth
	ph := handlers.NewPublicHandler(tokens)
	mux.Handle("/q/", http.HandlerFunc(ph.View))

	return mux
}

func methodPost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func listCreate(list, create http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
}
