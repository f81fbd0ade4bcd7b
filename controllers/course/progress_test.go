package controllers

import (
	"testing"

	courseModels "lms/models/course"
	"lms/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestGetLessonProgressDefault(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "Ada")
	_, lessons := seedCourse(t, db, "Go Basics", 2)

	progress, err := getLessonProgress(db, user.ID, lessons[0].ID)
	require.NoError(t, err)

	assert.Equal(t, user.ID, progress.UserID)
	assert.Equal(t, lessons[0].ID, progress.LessonID)
	assert.False(t, progress.Completed)
	assert.Nil(t, progress.CompletedAt)
	assert.Zero(t, progress.TimeSpent)
	assert.Zero(t, progress.Attempts)
	assert.Zero(t, progress.ID, "default progress must not be persisted")
}

func TestGetLessonProgressValidation(t *testing.T) {
	db := setupTestDB(t)

	_, err := getLessonProgress(db, 0, 1)
	var validationErr *utils.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = getLessonProgress(db, 1, 9999)
	var notFoundErr *utils.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestUpsertCreatesLazily(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "Ada")
	_, lessons := seedCourse(t, db, "Go Basics", 2)

	progress, err := upsertLessonProgress(db, user.ID, lessons[0].ID, ProgressPatch{TimeSpent: intPtr(120)})
	require.NoError(t, err)

	assert.NotZero(t, progress.ID)
	assert.Equal(t, 120, progress.TimeSpent)
	assert.False(t, progress.Completed)
}

func TestCompletedNeverReverts(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "Ada")
	_, lessons := seedCourse(t, db, "Go Basics", 3)

	completeLessons(t, db, user.ID, lessons[0])

	// A later update carrying completed=false must not undo the completion.
	progress, err := upsertLessonProgress(db, user.ID, lessons[0].ID, ProgressPatch{
		Completed: boolPtr(false),
		TimeSpent: intPtr(300),
	})
	require.NoError(t, err)

	assert.True(t, progress.Completed)
	assert.NotNil(t, progress.CompletedAt)
	assert.Equal(t, 300, progress.TimeSpent)
}

func TestTimeSpentNeverDecreases(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "Ada")
	_, lessons := seedCourse(t, db, "Go Basics", 2)

	_, err := upsertLessonProgress(db, user.ID, lessons[0].ID, ProgressPatch{TimeSpent: intPtr(500)})
	require.NoError(t, err)

	progress, err := upsertLessonProgress(db, user.ID, lessons[0].ID, ProgressPatch{TimeSpent: intPtr(200)})
	require.NoError(t, err)

	assert.Equal(t, 500, progress.TimeSpent)
}

func TestAttemptsIncrementOnFirstCompletionOnly(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "Ada")
	_, lessons := seedCourse(t, db, "Go Basics", 3)

	// Plain updates do not touch attempts.
	progress, err := upsertLessonProgress(db, user.ID, lessons[0].ID, ProgressPatch{TimeSpent: intPtr(60)})
	require.NoError(t, err)
	assert.Zero(t, progress.Attempts)

	// The completing call counts as exactly one attempt.
	progress, err = upsertLessonProgress(db, user.ID, lessons[0].ID, ProgressPatch{Completed: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Attempts)
	require.NotNil(t, progress.CompletedAt)

	// Completing again is a no-op for attempts.
	progress, err = upsertLessonProgress(db, user.ID, lessons[0].ID, ProgressPatch{Completed: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Attempts)
}

func TestAggregateCourseProgress(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "Ada")
	_, lessons := seedCourse(t, db, "Go Basics", 3)

	completeLessons(t, db, user.ID, lessons[0], lessons[1])

	aggregate, err := aggregateCourseProgress(db, user.ID, lessons[0].CourseID)
	require.NoError(t, err)

	assert.Equal(t, 2, aggregate.CompletedLessons)
	assert.Equal(t, 3, aggregate.TotalLessons)
	assert.Equal(t, 67, aggregate.Progress)
	assert.False(t, aggregate.Completed)
}

func TestAggregateZeroLessonCourse(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "Ada")
	course, _ := seedCourse(t, db, "Empty Course", 0)

	aggregate, err := aggregateCourseProgress(db, user.ID, course.ID)
	require.NoError(t, err)

	assert.Zero(t, aggregate.Progress)
	assert.False(t, aggregate.Completed, "an empty course is never complete")
}

func TestAggregateUnknownCourse(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "Ada")

	_, err := aggregateCourseProgress(db, user.ID, 424242)
	var notFoundErr *utils.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestLessonAccessGate(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "Ada")
	course, lessons := seedCourse(t, db, "Go Basics", 3)

	// First lesson is always open.
	ok, err := canAccessLesson(db, user.ID, course.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// L3 is locked while L2 is not completed.
	ok, err = canAccessLesson(db, user.ID, course.ID, lessons[2].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	completeLessons(t, db, user.ID, lessons[0], lessons[1])

	ok, err = canAccessLesson(db, user.ID, course.ID, lessons[2].ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGateDeniesMutatingLockedLesson(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "Ada")
	_, lessons := seedCourse(t, db, "Go Basics", 3)

	_, err := upsertLessonProgress(db, user.ID, lessons[1].ID, ProgressPatch{Completed: boolPtr(true)})
	var conflictErr *utils.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestStaleWriterCannotRevertCompletion(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "Ada")
	_, lessons := seedCourse(t, db, "Go Basics", 2)

	// A writer patching only timeSpent must emit an UPDATE that never
	// assigns the completion columns, so even one holding a stale
	// completed=false read cannot clear them.
	staleAssignments := progressAssignments(ProgressPatch{TimeSpent: intPtr(300)})
	_, touchesCompleted := staleAssignments["completed"]
	assert.False(t, touchesCompleted)
	_, touchesCompletedAt := staleAssignments["completed_at"]
	assert.False(t, touchesCompletedAt)

	// Interleave: the completion commits first, then the stale writer's
	// statement lands on the now-completed row.
	completeLessons(t, db, user.ID, lessons[0])
	require.NoError(t, db.Model(&courseModels.LessonProgress{}).
		Where("user_id = ? AND lesson_id = ?", user.ID, lessons[0].ID).
		Updates(staleAssignments).Error)

	progress, err := getLessonProgress(db, user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.True(t, progress.Completed)
	assert.NotNil(t, progress.CompletedAt)
	assert.Equal(t, 1, progress.Attempts)
	assert.Equal(t, 300, progress.TimeSpent)

	// A stale lower timeSpent cannot shrink the merged value either.
	require.NoError(t, db.Model(&courseModels.LessonProgress{}).
		Where("user_id = ? AND lesson_id = ?", user.ID, lessons[0].ID).
		Updates(progressAssignments(ProgressPatch{TimeSpent: intPtr(60)})).Error)

	progress, err = getLessonProgress(db, user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 300, progress.TimeSpent)

	// A duplicate completion statement is idempotent at the SQL level:
	// completed_at guards both the timestamp and the attempt bump.
	firstCompletedAt := progress.CompletedAt
	require.NoError(t, db.Model(&courseModels.LessonProgress{}).
		Where("user_id = ? AND lesson_id = ?", user.ID, lessons[0].ID).
		Updates(progressAssignments(ProgressPatch{Completed: boolPtr(true)})).Error)

	progress, err = getLessonProgress(db, user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.True(t, progress.Completed)
	assert.Equal(t, 1, progress.Attempts)
	assert.WithinDuration(t, *firstCompletedAt, *progress.CompletedAt, 0)
}

func TestCompletedCourseIsFrozen(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "Ada")
	course, lessons := seedCourse(t, db, "Go Basics", 2)

	completeLessons(t, db, user.ID, lessons[0], lessons[1])

	// Review access stays open for every lesson.
	for _, lesson := range lessons {
		ok, err := canAccessLesson(db, user.ID, course.ID, lesson.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	// A duplicate completion retry is an idempotent success...
	progress, err := upsertLessonProgress(db, user.ID, lessons[1].ID, ProgressPatch{Completed: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, progress.Completed)
	assert.Equal(t, 1, progress.Attempts)

	// ...but any other mutation is refused.
	var conflictErr *utils.ConflictError
	_, err = upsertLessonProgress(db, user.ID, lessons[0].ID, ProgressPatch{TimeSpent: intPtr(9999)})
	assert.ErrorAs(t, err, &conflictErr)

	_, err = upsertLessonProgress(db, user.ID, lessons[0].ID, ProgressPatch{Attempts: intPtr(5)})
	assert.ErrorAs(t, err, &conflictErr)
}
