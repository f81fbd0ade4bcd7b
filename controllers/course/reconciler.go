package controllers

import (
	"errors"
	"log"

	"lms/database"
	courseModels "lms/models/course"
	"lms/utils"

	"github.com/robfig/cron/v3"
)

// StartCertificateReconciler schedules the periodic sweep that issues
// certificates missed at completion time, e.g. when issuance failed right
// after the final lesson was persisted. Issuance is idempotent, so the
// sweep can never double-issue.
func StartCertificateReconciler() *cron.Cron {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 10m", ReconcileMissingCertificates); err != nil {
		log.Fatalf("Failed to schedule certificate reconciler: %v", err)
	}
	scheduler.Start()
	log.Println("Certificate reconciler scheduled (every 10m).")
	return scheduler
}

// ReconcileMissingCertificates finds (user, course) pairs with completed
// lessons but no certificate and re-runs the issuer for each.
func ReconcileMissingCertificates() {
	db := database.Database.Db

	type candidate struct {
		UserID   uint
		CourseID uint
	}

	var candidates []candidate
	err := db.Model(&courseModels.LessonProgress{}).
		Select("lesson_progresses.user_id, lessons.course_id").
		Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id").
		Where("lesson_progresses.completed = ?", true).
		Group("lesson_progresses.user_id, lessons.course_id").
		Scan(&candidates).Error
	if err != nil {
		log.Printf("Error scanning for reconciliation candidates: %v", err)
		return
	}

	issued := 0
	for _, cand := range candidates {
		var count int64
		db.Model(&courseModels.Certificate{}).
			Where("user_id = ? AND course_id = ?", cand.UserID, cand.CourseID).
			Count(&count)
		if count > 0 {
			continue
		}

		certificate, alreadyIssued, err := issueCertificateIfComplete(db, cand.UserID, cand.CourseID)
		if err != nil {
			// IncompleteError is the common case (course still in progress)
			// and not worth logging; anything else means the sweep is broken.
			var incompleteErr *utils.IncompleteError
			if !errors.As(err, &incompleteErr) {
				log.Printf("Error reconciling certificate for user %d course %d: %v", cand.UserID, cand.CourseID, err)
			}
			continue
		}
		if !alreadyIssued {
			issued++
			log.Printf("Reconciler issued certificate %s for user %d course %d", certificate.CertificateNumber, cand.UserID, cand.CourseID)
		}
	}

	if issued > 0 {
		log.Printf("Certificate reconciler issued %d missing certificate(s).", issued)
	}
}
