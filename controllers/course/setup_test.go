package controllers

import (
	"fmt"
	"testing"

	"lms/config"
	"lms/database"
	"lms/models"
	courseModels "lms/models/course"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB wires the global database and config to a fresh in-memory
// sqlite instance so the handlers and core functions under test run against
// the same globals they use in production.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	config.AppConfig = &config.Config{
		Port:        "3000",
		JWTKey:      "test-secret",
		SaltRound:   4,
		BaseURL:     "http://lms.test",
		EmailSender: "no-reply@lms.test",
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&courseModels.Course{},
		&courseModels.Lesson{},
		&courseModels.LessonProgress{},
		&courseModels.Certificate{},
	))

	database.Database = database.DbInstance{Db: db}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s@lms.test", uuid.NewString()),
		Role:     "STUDENT",
		Password: "irrelevant",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, title string, lessonCount int) (*courseModels.Course, []courseModels.Lesson) {
	t.Helper()
	course := &courseModels.Course{
		Title:       title,
		Description: "test course",
		IsPublished: true,
	}
	require.NoError(t, db.Create(course).Error)

	lessons := make([]courseModels.Lesson, lessonCount)
	for i := 0; i < lessonCount; i++ {
		lessons[i] = courseModels.Lesson{
			CourseID:    course.ID,
			Title:       fmt.Sprintf("Lesson %d", i+1),
			Order:       i + 1,
			Duration:    10,
			IsPublished: true,
		}
		require.NoError(t, db.Create(&lessons[i]).Error)
	}
	return course, lessons
}

// completeLessons marks the given lessons completed, in order, through the
// regular upsert path.
func completeLessons(t *testing.T, db *gorm.DB, userID uint, lessons ...courseModels.Lesson) {
	t.Helper()
	completed := true
	for _, lesson := range lessons {
		_, err := upsertLessonProgress(db, userID, lesson.ID, ProgressPatch{Completed: &completed})
		require.NoError(t, err)
	}
}
