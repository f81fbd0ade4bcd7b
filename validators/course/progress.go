package courseValidator

import (
	"lms/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func LessonIDParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return idParam(c, "lessonId", "lessonID", "lesson ID")
	}
}

func CourseIDParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return idParam(c, "courseId", "courseID", "course ID")
	}
}

// UpdateLessonProgress validates the strict progress-update schema before
// anything reaches the store.
func UpdateLessonProgress() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			UserID    uint  `json:"userId"`
			Completed *bool `json:"completed"`
			TimeSpent *int  `json:"timeSpent"`
			Attempts  *int  `json:"attempts"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if err := validate.Var(reqData.UserID, "omitempty,gt=0"); err != nil {
			errors["userId"] = "User ID must be positive!"
		}
		if reqData.TimeSpent != nil {
			if err := validate.Var(*reqData.TimeSpent, "gte=0,lte=31536000"); err != nil {
				errors["timeSpent"] = "Time spent must be between 0 and 31536000 seconds!"
			}
		}
		if reqData.Attempts != nil {
			if err := validate.Var(*reqData.Attempts, "gte=0,lte=10000"); err != nil {
				errors["attempts"] = "Attempts must be between 0 and 10000!"
			}
		}
		if reqData.Completed == nil && reqData.TimeSpent == nil && reqData.Attempts == nil {
			errors["body"] = "At least one of completed, timeSpent or attempts is required!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedProgress", reqData)
		return idParam(c, "lessonId", "lessonID", "lesson ID")
	}
}

// CompleteLesson validates the completion payload.
func CompleteLesson() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			UserID    uint `json:"userId"`
			TimeSpent *int `json:"timeSpent"`
		})
		// Body is optional; an empty body means the authenticated user.
		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}

		errors := make(map[string]string)

		if err := validate.Var(reqData.UserID, "omitempty,gt=0"); err != nil {
			errors["userId"] = "User ID must be positive!"
		}
		if reqData.TimeSpent != nil {
			if err := validate.Var(*reqData.TimeSpent, "gte=0,lte=31536000"); err != nil {
				errors["timeSpent"] = "Time spent must be between 0 and 31536000 seconds!"
			}
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedComplete", reqData)
		return idParam(c, "lessonId", "lessonID", "lesson ID")
	}
}
