package controllers

import (
	"errors"
	"math"
	"time"

	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ProgressPatch carries the caller-supplied fields of a progress update.
// Nil fields are left untouched.
type ProgressPatch struct {
	Completed *bool
	TimeSpent *int
	Attempts  *int
}

// CourseProgress is the derived course-level aggregate. It is computed from
// lesson progress rows on every call and never stored as ground truth.
type CourseProgress struct {
	CourseID         uint                          `json:"course_id"`
	CompletedLessons int                           `json:"completed_lessons"`
	TotalLessons     int                           `json:"total_lessons"`
	Progress         int                           `json:"progress"`
	Completed        bool                          `json:"completed"`
	LessonProgress   []courseModels.LessonProgress `json:"lesson_progress"`
}

// getLessonProgress returns the stored progress for (user, lesson), or a
// zero-value default when no row exists yet. Absence is not an error.
func getLessonProgress(db *gorm.DB, userID, lessonID uint) (*courseModels.LessonProgress, error) {
	if userID == 0 || lessonID == 0 {
		return nil, utils.NewValidationError("id", "user and lesson ids must be positive")
	}

	var lesson courseModels.Lesson
	if err := db.Where("id = ? AND is_deleted = ?", lessonID, false).First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Lesson")
		}
		return nil, utils.NewStorageError(err)
	}

	var progress courseModels.LessonProgress
	err := db.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &courseModels.LessonProgress{UserID: userID, LessonID: lessonID}, nil
	}
	if err != nil {
		return nil, utils.NewStorageError(err)
	}
	return &progress, nil
}

// applyProgressPatch merges a patch into a progress row under the store's
// invariants: timeSpent is replaced but never decreased, attempts never
// decrease, and completed only ever transitions false -> true. The call
// that first completes the lesson counts as one attempt.
func applyProgressPatch(p *courseModels.LessonProgress, patch ProgressPatch) {
	if patch.TimeSpent != nil && *patch.TimeSpent > p.TimeSpent {
		p.TimeSpent = *patch.TimeSpent
	}
	if patch.Attempts != nil && *patch.Attempts > p.Attempts {
		p.Attempts = *patch.Attempts
	}
	if patch.Completed != nil && *patch.Completed && !p.Completed {
		p.Completed = true
		now := time.Now()
		p.CompletedAt = &now
		p.Attempts++
	}
	// A patch carrying completed=false never reverts an earlier completion.
}

// progressAssignments builds the guarded column updates for an existing
// progress row. The merge invariants are enforced in SQL against the row's
// current values, not the caller's read-time copy, so two interleaved
// writers cannot lose each other's updates: completed is only ever assigned
// true, completed_at is written once (it is NULL until the first
// completion), timeSpent and attempts only grow.
func progressAssignments(patch ProgressPatch) map[string]interface{} {
	assignments := map[string]interface{}{}

	if patch.TimeSpent != nil {
		assignments["time_spent"] = gorm.Expr(
			"CASE WHEN time_spent >= ? THEN time_spent ELSE ? END", *patch.TimeSpent, *patch.TimeSpent)
	}

	attemptsExpr := "attempts"
	var attemptsArgs []interface{}
	if patch.Attempts != nil {
		attemptsExpr = "CASE WHEN attempts >= ? THEN attempts ELSE ? END"
		attemptsArgs = append(attemptsArgs, *patch.Attempts, *patch.Attempts)
	}

	if patch.Completed != nil && *patch.Completed {
		assignments["completed"] = true
		assignments["completed_at"] = gorm.Expr(
			"CASE WHEN completed_at IS NULL THEN ? ELSE completed_at END", time.Now())
		attemptsExpr = "(" + attemptsExpr + ") + CASE WHEN completed_at IS NULL THEN 1 ELSE 0 END"
	}
	if attemptsExpr != "attempts" {
		assignments["attempts"] = gorm.Expr(attemptsExpr, attemptsArgs...)
	}

	return assignments
}

// upsertLessonProgress creates or updates the (user, lesson) progress row.
// Mutations are refused once the course is fully completed (review access
// stays open, re-completion does not), and a lesson can only be worked on
// once its predecessor is completed.
func upsertLessonProgress(db *gorm.DB, userID, lessonID uint, patch ProgressPatch) (*courseModels.LessonProgress, error) {
	if userID == 0 || lessonID == 0 {
		return nil, utils.NewValidationError("id", "user and lesson ids must be positive")
	}

	var lesson courseModels.Lesson
	if err := db.Where("id = ? AND is_deleted = ?", lessonID, false).First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Lesson")
		}
		return nil, utils.NewStorageError(err)
	}

	aggregate, err := aggregateCourseProgress(db, userID, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if aggregate.Completed {
		// The course is frozen. A duplicate completion retry for an already
		// completed lesson is an idempotent no-op success; every other
		// mutation (regressions, re-attempts, time updates) is refused.
		if patch.Completed != nil && *patch.Completed {
			var existing courseModels.LessonProgress
			err := db.Where("user_id = ? AND lesson_id = ? AND completed = ?", userID, lessonID, true).First(&existing).Error
			if err == nil {
				return &existing, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, utils.NewStorageError(err)
			}
		}
		return nil, utils.NewConflictError("Course already completed; progress can no longer be changed.")
	}

	accessible, err := canAccessLesson(db, userID, lesson.CourseID, lessonID)
	if err != nil {
		return nil, err
	}
	if !accessible {
		return nil, utils.NewConflictError("Previous lesson must be completed first!")
	}

	var progress courseModels.LessonProgress
	err = db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&progress).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			progress = courseModels.LessonProgress{UserID: userID, LessonID: lessonID}
			applyProgressPatch(&progress, patch)
			createErr := tx.Create(&progress).Error
			if createErr == nil {
				return nil
			}
			if !errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return createErr
			}
			// Lost a first-interaction race; fall through to the update path.
		} else if err != nil {
			return err
		}

		// Guarded in-place update: the invariants are applied against the
		// row's current values inside the UPDATE itself, so a writer holding
		// a stale read cannot revert a completion or shrink timeSpent.
		if assignments := progressAssignments(patch); len(assignments) > 0 {
			res := tx.Model(&courseModels.LessonProgress{}).
				Where("user_id = ? AND lesson_id = ?", userID, lessonID).
				Updates(assignments)
			if res.Error != nil {
				return res.Error
			}
		}
		return tx.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&progress).Error
	})
	if err != nil {
		return nil, utils.NewStorageError(err)
	}
	return &progress, nil
}

// aggregateCourseProgress derives the course-level completion state from
// the stored lesson progress rows. Read-only; lessons without a progress
// row count as not completed; a course with zero lessons is never complete.
func aggregateCourseProgress(db *gorm.DB, userID, courseID uint) (*CourseProgress, error) {
	if userID == 0 || courseID == 0 {
		return nil, utils.NewValidationError("id", "user and course ids must be positive")
	}

	var course courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Course")
		}
		return nil, utils.NewStorageError(err)
	}

	lessons, err := courseLessonsOrdered(db, courseID)
	if err != nil {
		return nil, err
	}

	result := &CourseProgress{
		CourseID:       courseID,
		TotalLessons:   len(lessons),
		LessonProgress: []courseModels.LessonProgress{},
	}
	if len(lessons) == 0 {
		return result, nil
	}

	lessonIDs := make([]uint, len(lessons))
	for i, lesson := range lessons {
		lessonIDs[i] = lesson.ID
	}

	var rows []courseModels.LessonProgress
	if err := db.Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).Find(&rows).Error; err != nil {
		return nil, utils.NewStorageError(err)
	}

	for _, row := range rows {
		if row.Completed {
			result.CompletedLessons++
		}
	}
	result.LessonProgress = rows
	result.Progress = int(math.Round(float64(result.CompletedLessons) / float64(result.TotalLessons) * 100))
	result.Completed = result.CompletedLessons == result.TotalLessons

	return result, nil
}

// canAccessLesson decides whether a user may view or work on a lesson. The
// first lesson of a course is always accessible; any later lesson requires
// its predecessor to be completed. A fully completed course stays readable
// end to end (review access).
func canAccessLesson(db *gorm.DB, userID, courseID, lessonID uint) (bool, error) {
	if userID == 0 || courseID == 0 || lessonID == 0 {
		return false, utils.NewValidationError("id", "ids must be positive")
	}

	lessons, err := courseLessonsOrdered(db, courseID)
	if err != nil {
		return false, err
	}

	index := -1
	for i, lesson := range lessons {
		if lesson.ID == lessonID {
			index = i
			break
		}
	}
	if index == -1 {
		return false, utils.NewNotFoundError("Lesson")
	}
	if index == 0 {
		return true, nil
	}

	lessonIDs := make([]uint, len(lessons))
	for i, lesson := range lessons {
		lessonIDs[i] = lesson.ID
	}
	var rows []courseModels.LessonProgress
	if err := db.Where("user_id = ? AND lesson_id IN ? AND completed = ?", userID, lessonIDs, true).Find(&rows).Error; err != nil {
		return false, utils.NewStorageError(err)
	}

	completed := make(map[uint]bool, len(rows))
	for _, row := range rows {
		completed[row.LessonID] = true
	}

	// Review access once everything is done
	if len(rows) == len(lessons) {
		return true, nil
	}

	return completed[lessons[index-1].ID], nil
}

// courseLessonsOrdered returns the published lessons of a course in their
// strict display order.
func courseLessonsOrdered(db *gorm.DB, courseID uint) ([]courseModels.Lesson, error) {
	var lessons []courseModels.Lesson
	err := db.Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		Order("lesson_order asc").
		Find(&lessons).Error
	if err != nil {
		return nil, utils.NewStorageError(err)
	}
	return lessons, nil
}

// GetLessonProgress returns the user's progress on a lesson, a zero-value
// default when the user has not touched it yet.
func GetLessonProgress(c *fiber.Ctx) error {
	lessonID := uint(c.Locals("lessonID").(int))

	requested := uint(c.QueryInt("userId", 0))
	userID, err := middleware.ResolveUserID(c, requested)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, err.Error(), nil)
	}

	progress, err := getLessonProgress(database.Database.Db, userID, lessonID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson progress fetched successfully!", progress)
}

// UpdateLessonProgress applies a validated progress patch for a lesson.
func UpdateLessonProgress(c *fiber.Ctx) error {
	lessonID := uint(c.Locals("lessonID").(int))

	reqData, ok := c.Locals("validatedProgress").(*struct {
		UserID    uint  `json:"userId"`
		Completed *bool `json:"completed"`
		TimeSpent *int  `json:"timeSpent"`
		Attempts  *int  `json:"attempts"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	userID, err := middleware.ResolveUserID(c, reqData.UserID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, err.Error(), nil)
	}

	patch := ProgressPatch{
		Completed: reqData.Completed,
		TimeSpent: reqData.TimeSpent,
		Attempts:  reqData.Attempts,
	}

	progress, err := upsertLessonProgress(database.Database.Db, userID, lessonID, patch)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	// Completing a lesson through this endpoint also triggers the course
	// completion check, same as the dedicated complete endpoint.
	if progress.Completed {
		checkCourseCompletion(userID, lessonID)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson progress updated successfully!", progress)
}

// CompleteLesson marks a lesson completed and, when that completes the
// course, triggers idempotent certificate issuance as a side effect.
func CompleteLesson(c *fiber.Ctx) error {
	lessonID := uint(c.Locals("lessonID").(int))

	reqData, ok := c.Locals("validatedComplete").(*struct {
		UserID    uint `json:"userId"`
		TimeSpent *int `json:"timeSpent"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	userID, err := middleware.ResolveUserID(c, reqData.UserID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, err.Error(), nil)
	}

	completed := true
	patch := ProgressPatch{Completed: &completed, TimeSpent: reqData.TimeSpent}

	progress, err := upsertLessonProgress(database.Database.Db, userID, lessonID, patch)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	aggregate := checkCourseCompletion(userID, lessonID)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson completed successfully!", fiber.Map{
		"progress": progress,
		"course":   aggregate,
	})
}

// checkCourseCompletion re-aggregates the lesson's course and invokes the
// certificate issuer when it is fully completed. Issuance failures are only
// logged: the lesson completion already succeeded and a retry (client or
// reconciler) is always safe.
func checkCourseCompletion(userID, lessonID uint) *CourseProgress {
	db := database.Database.Db

	var lesson courseModels.Lesson
	if err := db.Where("id = ?", lessonID).First(&lesson).Error; err != nil {
		return nil
	}

	aggregate, err := aggregateCourseProgress(db, userID, lesson.CourseID)
	if err != nil {
		return nil
	}
	if aggregate.Completed {
		if _, _, err := issueCertificateIfComplete(db, userID, lesson.CourseID); err != nil {
			logCertificateFailure(userID, lesson.CourseID, err)
		}
	}
	return aggregate
}

// GetCourseProgress returns the derived aggregate for a course.
func GetCourseProgress(c *fiber.Ctx) error {
	courseID := uint(c.Locals("courseID").(int))

	requested := uint(c.QueryInt("userId", 0))
	userID, err := middleware.ResolveUserID(c, requested)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, err.Error(), nil)
	}

	aggregate, err := aggregateCourseProgress(database.Database.Db, userID, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course progress fetched successfully!", aggregate)
}
