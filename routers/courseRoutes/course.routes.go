package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up the course catalog, lesson progress and
// certificate routes. Certificate verification is the single public
// endpoint: it backs the QR code printed on every certificate.
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/courses")

	// Catalog (published courses)
	courseGroup.Get("/", middleware.JWTMiddleware, validators.CourseList(), controllers.GetAllCourses)
	courseGroup.Get("/:courseId", middleware.JWTMiddleware, validators.GetCourseDetail(), controllers.GetCourseDetails)
	courseGroup.Get("/:courseId/lessons", middleware.JWTMiddleware, validators.CourseIDParam(), controllers.GetCourseLessons)
	courseGroup.Get("/:courseId/lessons/:lessonId", middleware.JWTMiddleware, validators.GetLessonDetail(), controllers.GetLessonDetail)

	// Course-level progress and certificate issuance
	courseGroup.Get("/:courseId/progress", middleware.JWTMiddleware, validators.CourseIDParam(), controllers.GetCourseProgress)
	courseGroup.Post("/:courseId/certificate", middleware.JWTMiddleware, validators.GenerateCertificate(), controllers.GenerateCertificate)

	// Lesson-level progress
	lessonGroup := app.Group("/lessons")
	lessonGroup.Get("/:lessonId/progress", middleware.JWTMiddleware, validators.LessonIDParam(), controllers.GetLessonProgress)
	lessonGroup.Post("/:lessonId/progress", middleware.JWTMiddleware, validators.UpdateLessonProgress(), controllers.UpdateLessonProgress)
	lessonGroup.Post("/:lessonId/complete", middleware.JWTMiddleware, validators.CompleteLesson(), controllers.CompleteLesson)

	// Certificates
	certificateGroup := app.Group("/certificates")
	certificateGroup.Get("/", middleware.JWTMiddleware, controllers.GetUserCertificates)
	certificateGroup.Get("/:id/download", middleware.JWTMiddleware, validators.DownloadCertificate(), controllers.DownloadCertificate)

	// Public verification, no auth: this is the QR-code landing lookup
	certificateGroup.Get("/verify/:certificateNumber", controllers.VerifyCertificate)
}
