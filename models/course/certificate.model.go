package course

import (
	"time"

	"gorm.io/gorm"
)

// Certificate is an immutable record of course completion. The composite
// unique index on (user_id, course_id) enforces at-most-one certificate per
// pair even under concurrent issuance.
type Certificate struct {
	gorm.Model
	UserID            uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_course"`
	CourseID          uint      `json:"course_id" gorm:"not null;uniqueIndex:idx_user_course"`
	CertificateNumber string    `json:"certificate_number" gorm:"unique;not null"`
	IssuedAt          time.Time `json:"issued_at"`

	// Denormalized for rendering and verification without joins
	UserName   string `json:"user_name"`
	CourseName string `json:"course_name"`
}
