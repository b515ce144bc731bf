package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/quotecraft/quotecraft/internal/auth"
	"github.com/quotecraft/quotecraft/internal/config"
	"github.com/quotecraft/quotecraft/internal/db"
	"github.com/quotecraft/quotecraft/internal/logging"
	"github.com/quotecraft/quotecraft/internal/mail"
	"github.com/quotecraft/quotecraft/internal/server"
)

// request logging middleware
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	hashPassFlag    = flag.String("hash-password", "", "Print the bcrypt hash for a password and exit")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()
	cfg := config.Load()
	logging.Setup(cfg.Debug, "logs")

	if *hashPassFlag != "" {
		hash, err := auth.HashPassword(*hashPassFlag)
		if err != nil {
			logrus.Fatalf("hash-password failed: %v", err)
		}
		fmt.Println(hash)
		return
	}
	if *migrateOnlyFlag {
		if _, err := db.ConnectAndMigrate(cfg.DatabaseDSN); err != nil {
			logrus.Fatalf("migrate-only failed: %v", err)
		}
		logrus.Info("migrations completed; exiting as requested")
		return
	}

	dbConn, err := db.ConnectAndMigrate(cfg.DatabaseDSN)
	if err != nil {
		logrus.Fatalf("database connection failed: %v", err)
	}
	logrus.WithFields(logrus.Fields{"env": cfg.Env, "port": cfg.Port}).Info("starting server")

	dispatcher := mail.NewSMTPDispatcher(cfg.SMTP)
	handler := server.New(dbConn, cfg, dispatcher)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: withLogging(handler)}

	go func() {
		logrus.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("error during shutdown")
	}
	logrus.Info("server gracefully stopped")
}
