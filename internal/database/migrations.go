package database

import (
	"gorm.io/gorm"

	"github.com/servimatch/servimatch/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ServiceCategory{},
		&models.Professional{},
		&models.WorkCategory{},
		&models.WorkLocation{},
		&models.NotificationPreferences{},
		&models.ServiceRequest{},
		&models.Notification{},
		&models.CacheEntry{},
	)
}

// SeedData populates the default service categories.
func SeedData(db *gorm.DB) error {
	categories := []models.ServiceCategory{
		{BaseModel: models.BaseModel{ID: "cat-plumbing"}, Name: "Plumbing", Slug: "plumbing", IsActive: true},
		{BaseModel: models.BaseModel{ID: "cat-electrical"}, Name: "Electrical", Slug: "electrical", IsActive: true},
		{BaseModel: models.BaseModel{ID: "cat-cleaning"}, Name: "Cleaning", Slug: "cleaning", IsActive: true},
		{BaseModel: models.BaseModel{ID: "cat-carpentry"}, Name: "Carpentry", Slug: "carpentry", IsActive: true},
		{BaseModel: models.BaseModel{ID: "cat-painting"}, Name: "Painting", Slug: "painting", IsActive: true},
	}

	for _, category := range categories {
		err := db.Where(models.ServiceCategory{Slug: category.Slug}).
			Attrs(category).
			FirstOrCreate(&models.ServiceCategory{}).Error
		if err != nil {
			return err
		}
	}

	return nil
}
