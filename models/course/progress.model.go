package course

import (
	"time"

	"gorm.io/gorm"
)

// LessonProgress tracks a user's progress on a single lesson. One row per
// (user, lesson) pair, created lazily on first interaction.
//
// Invariants: Completed never reverts to false once set; Completed implies
// CompletedAt is set and Attempts >= 1; TimeSpent never decreases.
type LessonProgress struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_user_lesson"`
	LessonID    uint       `json:"lesson_id" gorm:"not null;uniqueIndex:idx_user_lesson"`
	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at"`
	TimeSpent   int        `json:"time_spent" gorm:"default:0"` // seconds, cumulative
	Attempts    int        `json:"attempts" gorm:"default:0"`
}
