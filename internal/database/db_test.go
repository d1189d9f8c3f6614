package database

import (
	"testing"

	"gorm.io/gorm"

	"github.com/servimatch/servimatch/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("expected health query to succeed: %v", err)
	}
}

func TestAutoMigrateAndSeedData(t *testing.T) {
	db := openTestDB(t)

	if err := AutoMigrateAndSeed(db); err != nil {
		t.Fatalf("auto migrate and seed failed: %v", err)
	}

	var categoryCount int64
	if err := db.Model(&models.ServiceCategory{}).Count(&categoryCount).Error; err != nil {
		t.Fatalf("count categories: %v", err)
	}
	if categoryCount < 5 {
		t.Fatalf("expected at least 5 seeded categories, got %d", categoryCount)
	}

	// Seeding is idempotent.
	if err := SeedData(db); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	var recount int64
	if err := db.Model(&models.ServiceCategory{}).Count(&recount).Error; err != nil {
		t.Fatalf("recount categories: %v", err)
	}
	if recount != categoryCount {
		t.Fatalf("expected reseed to be a no-op, got %d vs %d", recount, categoryCount)
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
