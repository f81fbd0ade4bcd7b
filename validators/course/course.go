package courseValidator

import (
	"strconv"

	"lms/middleware"

	"github.com/gofiber/fiber/v2"
)

// idParam parses a positive integer route parameter into c.Locals under the
// given key, rejecting the request otherwise.
func idParam(c *fiber.Ctx, param, localKey, label string) error {
	id, err := strconv.Atoi(c.Params(param))
	if err != nil || id <= 0 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid "+label+"!", nil)
	}
	c.Locals(localKey, id)
	return c.Next()
}

func CourseList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Page  *int `json:"page"`
			Limit *int `json:"limit"`
		})

		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}

		errors := make(map[string]string)

		if reqData.Page != nil && *reqData.Page < 1 {
			errors["page"] = "Page must be greater than 0!"
		}
		if reqData.Limit != nil && (*reqData.Limit < 1 || *reqData.Limit > 100) {
			errors["limit"] = "Limit must be between 1 and 100!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedList", reqData)
		return c.Next()
	}
}

func GetCourseDetail() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return idParam(c, "courseId", "courseID", "course ID")
	}
}

func GetLessonDetail() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, err := strconv.Atoi(c.Params("courseId")); err != nil || id <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid course ID!", nil)
		} else {
			c.Locals("courseID", id)
		}
		return idParam(c, "lessonId", "lessonID", "lesson ID")
	}
}
