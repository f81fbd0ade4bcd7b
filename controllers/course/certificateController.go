package controllers

import (
	"errors"
	"log"
	"time"

	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// issueCertificateIfComplete issues a certificate for (user, course) with
// at-most-once semantics. Returns the certificate and whether it already
// existed. The unique index on (user_id, course_id) is the race arbiter:
// when two concurrent completions both reach the insert, the loser's
// duplicate-key error is resolved by returning the winner's record. A retry
// after any failure or timeout is therefore always correct.
func issueCertificateIfComplete(db *gorm.DB, userID, courseID uint) (*courseModels.Certificate, bool, error) {
	if userID == 0 || courseID == 0 {
		return nil, false, utils.NewValidationError("id", "user and course ids must be positive")
	}

	var user models.User
	if err := db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, utils.NewNotFoundError("User")
		}
		return nil, false, utils.NewStorageError(err)
	}

	var course courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, utils.NewNotFoundError("Course")
		}
		return nil, false, utils.NewStorageError(err)
	}

	aggregate, err := aggregateCourseProgress(db, userID, courseID)
	if err != nil {
		return nil, false, err
	}
	if !aggregate.Completed {
		return nil, false, utils.NewIncompleteError("Please complete all lessons before requesting a certificate!")
	}

	// Fast path: certificate already issued
	var existing courseModels.Certificate
	err = db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error
	if err == nil {
		return &existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, utils.NewStorageError(err)
	}

	certificate := courseModels.Certificate{
		UserID:            userID,
		CourseID:          courseID,
		CertificateNumber: utils.GenerateCertificateNumber(),
		IssuedAt:          time.Now(),
		UserName:          user.Name,
		CourseName:        course.Title,
	}

	if err := db.Create(&certificate).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the issuance race; the other writer's certificate wins.
			if err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error; err != nil {
				return nil, false, utils.NewStorageError(err)
			}
			return &existing, true, nil
		}
		return nil, false, utils.NewStorageError(err)
	}

	// Fresh issuance side effects: notification email and webhook events.
	// Both are fire-and-forget; the certificate record is already durable.
	verifyURL := utils.VerificationURL(certificate.CertificateNumber)
	go func() {
		if err := utils.SendCertificateEmail(user.Name, user.Email, course.Title, verifyURL); err != nil {
			log.Printf("Error sending certificate email for %s: %v", certificate.CertificateNumber, err)
		}
	}()
	utils.NotifyCompletionWebhook(utils.CompletionEvent{
		Event:      "course.completed",
		UserID:     userID,
		CourseID:   courseID,
		OccurredAt: time.Now(),
	})
	utils.NotifyCompletionWebhook(utils.CompletionEvent{
		Event:             "certificate.issued",
		UserID:            userID,
		CourseID:          courseID,
		CertificateNumber: certificate.CertificateNumber,
		OccurredAt:        time.Now(),
	})

	return &certificate, false, nil
}

func logCertificateFailure(userID, courseID uint, err error) {
	log.Printf("Error issuing certificate for user %d course %d: %v (the reconciler will retry)", userID, courseID, err)
}

// GenerateCertificate issues the certificate for a completed course.
// Idempotent: re-requesting returns the existing certificate with 200.
func GenerateCertificate(c *fiber.Ctx) error {
	courseID := uint(c.Locals("courseID").(int))

	reqData := new(struct {
		UserID uint `json:"userId"`
	})
	// Body is optional; an empty body means the authenticated user.
	if len(c.Body()) > 0 {
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
	}

	userID, err := middleware.ResolveUserID(c, reqData.UserID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, err.Error(), nil)
	}

	certificate, alreadyIssued, err := issueCertificateIfComplete(database.Database.Db, userID, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	if alreadyIssued {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate already issued!", certificate)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Certificate issued successfully!", certificate)
}

// GetUserCertificates lists the authenticated user's certificates.
func GetUserCertificates(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var certificates []courseModels.Certificate
	if err := database.Database.Db.Where("user_id = ?", userID).Order("issued_at desc").Find(&certificates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificates!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", fiber.Map{
		"certificates": certificates,
		"total":        len(certificates),
	})
}

// DownloadCertificate streams the rendered PDF for an issued certificate.
// Only the owner (or an admin) may download it.
func DownloadCertificate(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	certificateID := uint(c.Locals("certificateID").(int))

	var certificate courseModels.Certificate
	if err := database.Database.Db.Where("id = ?", certificateID).First(&certificate).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Certificate not found!", nil)
	}

	role, _ := c.Locals("role").(string)
	if certificate.UserID != userID && role != "ADMIN" {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You do not have access to this certificate!", nil)
	}

	pdfBytes, err := utils.RenderCertificatePDF(&certificate)
	if err != nil {
		log.Printf("Error rendering certificate %s: %v", certificate.CertificateNumber, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to render certificate!", nil)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename=certificate-`+certificate.CertificateNumber+`.pdf`)
	return c.Send(pdfBytes)
}

// VerifyCertificate is the public, unauthenticated lookup backing the QR
// code on every certificate. Any failed lookup yields the same generic
// invalid response; the endpoint never distinguishes malformed numbers from
// absent ones.
func VerifyCertificate(c *fiber.Ctx) error {
	certificateNumber := c.Params("certificateNumber")

	var certificate courseModels.Certificate
	err := database.Database.Db.Where("certificate_number = ?", certificateNumber).First(&certificate).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Error verifying certificate %q: %v", certificateNumber, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"valid": false,
			"error": "Certificate not found or invalid",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"valid": true,
		"certificate": fiber.Map{
			"userName":          certificate.UserName,
			"courseName":        certificate.CourseName,
			"issuedAt":          certificate.IssuedAt,
			"certificateNumber": certificate.CertificateNumber,
		},
	})
}
