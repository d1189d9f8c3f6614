package models

// WorkLocation describes a locality a professional serves. Coordinates are
// optional: legacy rows carry only a locality name, in which case distance
// filtering reports an unknown outcome instead of a measurement.
type WorkLocation struct {
	BaseModel

	ProfessionalID string   `gorm:"type:uuid;index;not null" json:"professional_id"`
	Locality       string   `gorm:"type:varchar(255);not null" json:"locality"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	TravelRadiusKm float64  `gorm:"default:10" json:"travel_radius_km"`
	IsActive       bool     `gorm:"default:true" json:"is_active"`
}

// HasCoordinates reports whether the location resolves to a geographic point.
func (l *WorkLocation) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}
