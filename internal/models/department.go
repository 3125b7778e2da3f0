package models

// Department groups doctors for booking.
type Department struct {
	BaseModel
	Name        string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string `gorm:"size:500;not null;default:''" json:"description"`
}

// Doctor is the clinical record linked 1:1 to a doctor's login identity.
// ConsultationFee is nil when the clinic has not set one.
type Doctor struct {
	BaseModel
	UserID          string   `gorm:"size:36;not null;uniqueIndex" json:"userId"`
	DepartmentID    string   `gorm:"size:36;not null;index" json:"departmentId"`
	Specialization  string   `gorm:"size:100;not null" json:"specialization"`
	Qualification   string   `gorm:"size:200;not null" json:"qualification"`
	ExperienceYears int      `gorm:"not null;default:0" json:"experienceYears"`
	ConsultationFee *float64 `gorm:"type:decimal(10,2)" json:"consultationFee"`
}
