package db

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quotecraft/quotecraft/internal/models"
)

// Connect opens the database named by dsn. A postgres:// or
// postgresql:// DSN selects the postgres driver; anything else is
// treated as a sqlite path (file:... or a bare filename).
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty, check the environment configuration")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	if isPostgres(dsn) {
		var db *gorm.DB
		var err error
		for i := 0; i < 10; i++ {
			db, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			logrus.WithError(err).Warn("retrying DB connection")
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect database after retries: %w", err)
		}
		return db, nil
	}
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return db, nil
}

func isPostgres(dsn string) bool {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

// ConnectAndMigrate opens the database and brings the schema up to date.
// With MIGRATIONS=1 and a postgres DSN the SQL migrations in ./migrations
// run via golang-migrate; otherwise GORM AutoMigrate covers the schema
// (the sqlite and development path).
func ConnectAndMigrate(dsn string) (*gorm.DB, error) {
	db, err := Connect(dsn)
	if err != nil {
		return nil, err
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	logrus.WithField("dsn", maskDSN(dsn)).Info("database connected")

	if v := strings.ToLower(os.Getenv("MIGRATIONS")); isPostgres(dsn) && (v == "1" || v == "true" || v == "yes") {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	for _, table := range []string{"clients", "services", "quotes", "quote_items", "access_tokens"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		seed(db)
	}
	return db, nil
}

// AutoMigrate creates or updates all application tables.
func AutoMigrate(db *gorm.DB) error {
	modelsToMigrate := []interface{}{
		&models.User{}, &models.Client{}, &models.Service{},
		&models.Quote{}, &models.QuoteItem{}, &models.AccessToken{}, &models.EmailLog{},
	}
	for _, m := range modelsToMigrate {
		if migErr := db.AutoMigrate(m); migErr != nil {
			return fmt.Errorf("automigrate %T: %w", m, migErr)
		}
	}
	return nil
}

var pwRegex = regexp.MustCompile(`(password=)([^\s]+)`)

func maskDSN(dsn string) string {
	masked := dsn
	if strings.Contains(masked, "password=") {
		masked = pwRegex.ReplaceAllString(masked, `${1}***`)
	}
	if u := strings.Index(masked, "://"); u >= 0 {
		if at := strings.Index(masked, "@"); at > u {
			masked = masked[:u+3] + "***" + masked[at:]
		}
	}
	return masked
}

func seed(db *gorm.DB) {
	baseServices := []models.Service{
		{Name: "Design", Description: "Visual identity and layout work", BasePrice: 100, Category: "design", Active: true},
		{Name: "Hosting", Description: "Monthly hosting and maintenance", BasePrice: 50, Category: "infra", Active: true},
		{Name: "Consulting", Description: "Hourly consulting", BasePrice: 150, Category: "services", Active: true},
	}
	for _, s := range baseServices {
		var existing models.Service
		if err := db.Where("name = ?", s.Name).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			db.Create(&s)
		}
	}
}
