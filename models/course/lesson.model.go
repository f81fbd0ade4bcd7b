package course

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lesson represents a single lesson within a course. Order is unique per
// course; the access gate and next/prev navigation depend on it.
type Lesson struct {
	gorm.Model
	CourseID    uint           `json:"course_id" gorm:"index;not null;uniqueIndex:idx_course_order"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Content     string         `json:"content" gorm:"type:text"`
	VideoURL    string         `json:"video_url"`
	Duration    int            `json:"duration" gorm:"default:0"` // minutes
	Order       int            `json:"order" gorm:"column:lesson_order;not null;uniqueIndex:idx_course_order"`
	Objectives  datatypes.JSON `json:"objectives"`
	Hints       datatypes.JSON `json:"hints"`
	IsPublished bool           `json:"is_published" gorm:"default:true"`
	IsDeleted   bool           `gorm:"default:false"`
}
