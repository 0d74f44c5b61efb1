package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/models"
	"gorm.io/gorm"
)

// setupTestDB returns a migrated and seeded in-memory database private to t.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, false)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	if err := models.SeedDefaultData(db); err != nil {
		t.Fatalf("seed test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
