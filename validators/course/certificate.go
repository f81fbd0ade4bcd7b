package courseValidator

import (
	"github.com/gofiber/fiber/v2"
)

func GenerateCertificate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return idParam(c, "courseId", "courseID", "course ID")
	}
}

func DownloadCertificate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return idParam(c, "id", "certificateID", "certificate ID")
	}
}
