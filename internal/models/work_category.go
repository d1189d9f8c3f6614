package models

// WorkCategory links a professional to a service category they serve.
type WorkCategory struct {
	BaseModel

	ProfessionalID string `gorm:"type:uuid;index:idx_work_categories_pro_cat,unique;not null" json:"professional_id"`
	CategoryID     string `gorm:"type:uuid;index:idx_work_categories_pro_cat,unique;not null" json:"category_id"`
	IsActive       bool   `gorm:"default:true" json:"is_active"`
}
