package controllers

import (
	"errors"

	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LessonSummary is a lesson annotated with the caller's progress and the
// access gate's verdict.
type LessonSummary struct {
	courseModels.Lesson
	Completed  bool `json:"completed"`
	Accessible bool `json:"accessible"`
}

// GetAllCourses lists published courses.
func GetAllCourses(c *fiber.Ctx) error {
	reqData, _ := c.Locals("validatedList").(*struct {
		Page  *int `json:"page"`
		Limit *int `json:"limit"`
	})

	// Set default pagination
	page := 1
	limit := 10
	if reqData != nil && reqData.Page != nil {
		page = *reqData.Page
	}
	if reqData != nil && reqData.Limit != nil {
		limit = *reqData.Limit
	}
	offset := (page - 1) * limit

	db := database.Database.Db.Model(&courseModels.Course{}).Where("is_deleted = ? AND is_published = ?", false, true)

	var total int64
	db.Count(&total)

	var courses []courseModels.Course
	if err := db.Offset(offset).Limit(limit).Order("created_at desc").Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	response := map[string]interface{}{
		"courses": courses,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", response)
}

// GetCourseDetails returns a published course with its ordered lessons.
func GetCourseDetails(c *fiber.Ctx) error {
	courseID := uint(c.Locals("courseID").(int))

	var course courseModels.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	lessons, err := courseLessonsOrdered(database.Database.Db, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	course.Lessons = lessons

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", course)
}

// GetCourseLessons lists a course's lessons in order, each annotated with
// the caller's completion state and whether the gate admits them.
func GetCourseLessons(c *fiber.Ctx) error {
	courseID := uint(c.Locals("courseID").(int))

	userID, err := middleware.ResolveUserID(c, uint(c.QueryInt("userId", 0)))
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, err.Error(), nil)
	}

	db := database.Database.Db

	var course courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	lessons, err := courseLessonsOrdered(db, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	aggregate, err := aggregateCourseProgress(db, userID, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	completed := make(map[uint]bool, len(aggregate.LessonProgress))
	for _, row := range aggregate.LessonProgress {
		completed[row.LessonID] = row.Completed
	}

	result := make([]LessonSummary, len(lessons))
	for i, lesson := range lessons {
		// Lesson i is open when it is first, its predecessor is done, or the
		// whole course is done (review access).
		accessible := i == 0 || aggregate.Completed || completed[lessons[i-1].ID]
		result[i] = LessonSummary{
			Lesson:     lesson,
			Completed:  completed[lesson.ID],
			Accessible: accessible,
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lessons fetched successfully!", fiber.Map{
		"lessons":  result,
		"progress": aggregate,
	})
}

// GetLessonDetail returns a single lesson with next/prev navigation ids.
// Locked lessons are refused until their predecessor is completed.
func GetLessonDetail(c *fiber.Ctx) error {
	courseID := uint(c.Locals("courseID").(int))
	lessonID := uint(c.Locals("lessonID").(int))

	userID, err := middleware.ResolveUserID(c, uint(c.QueryInt("userId", 0)))
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, err.Error(), nil)
	}

	db := database.Database.Db

	var lesson courseModels.Lesson
	if err := db.Where("id = ? AND course_id = ? AND is_deleted = ?", lessonID, courseID, false).First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found in this course!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch lesson!", nil)
	}

	accessible, err := canAccessLesson(db, userID, courseID, lessonID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !accessible {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Lesson is locked. Complete the previous lesson first!", nil)
	}

	lessons, err := courseLessonsOrdered(db, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	var prevID, nextID uint
	for i, l := range lessons {
		if l.ID == lessonID {
			if i > 0 {
				prevID = lessons[i-1].ID
			}
			if i < len(lessons)-1 {
				nextID = lessons[i+1].ID
			}
			break
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson fetched successfully!", fiber.Map{
		"lesson":       lesson,
		"prevLessonId": prevID,
		"nextLessonId": nextID,
	})
}
