package models

import (
	"fmt"

	"github.com/huangang/gitdigest/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the configured database without touching the global.
func Open(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

func InitDB(cfg *config.DatabaseConfig, debug bool) error {
	db, err := Open(cfg, debug)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Migrate creates or updates every table on db.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&UserPreference{},
		&Session{},
		&DailyReport{},
		&SystemConfig{},
	)
}

func AutoMigrate() error {
	return Migrate(DB)
}

func GetDB() *gorm.DB {
	return DB
}

// DefaultSystemConfigs are the runtime knobs seeded on first start.
var DefaultSystemConfigs = []SystemConfig{
	{Key: "activity_fetch_concurrency", Value: "8", Type: "int", Group: "activity", Label: "Parallel Commit Fetches"},
	{Key: "activity_fetch_timeout", Value: "60", Type: "int", Group: "activity", Label: "Commit Fetch Timeout (seconds)"},
	{Key: "activity_max_lookback_days", Value: "30", Type: "int", Group: "activity", Label: "Maximum Lookback Days"},
	{Key: "summary_max_pr_body_length", Value: "5000", Type: "int", Group: "summary", Label: "Max PR Body Length"},
	{Key: "summary_max_commits_per_repo", Value: "500", Type: "int", Group: "summary", Label: "Max Commits Per Repository"},
	{Key: "summary_max_prs_per_repo", Value: "500", Type: "int", Group: "summary", Label: "Max PRs Per Repository"},
	{Key: "report_history_enabled", Value: "true", Type: "bool", Group: "summary", Label: "Keep Report History"},
	{Key: "email_enabled", Value: "false", Type: "bool", Group: "email", Label: "Email Delivery"},
	{Key: "email_host", Value: "", Type: "string", Group: "email", Label: "SMTP Host"},
	{Key: "email_port", Value: "587", Type: "int", Group: "email", Label: "SMTP Port"},
	{Key: "email_username", Value: "", Type: "string", Group: "email", Label: "SMTP Username"},
	{Key: "email_password", Value: "", Type: "password", Group: "email", Label: "SMTP Password"},
	{Key: "email_from", Value: "", Type: "string", Group: "email", Label: "Sender Address"},
	{Key: "email_use_tls", Value: "false", Type: "bool", Group: "email", Label: "Implicit TLS"},
}

// SeedDefaultData creates the default system configs that do not exist yet.
func SeedDefaultData(db *gorm.DB) error {
	for _, cfg := range DefaultSystemConfigs {
		var count int64
		db.Model(&SystemConfig{}).Where(&SystemConfig{Key: cfg.Key}).Count(&count)
		if count == 0 {
			if err := db.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
