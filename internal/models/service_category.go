package models

// ServiceCategory is a platform-managed category of offered services.
type ServiceCategory struct {
	BaseModel

	Name     string `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`
	Slug     string `gorm:"type:varchar(128);uniqueIndex;not null" json:"slug"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}
