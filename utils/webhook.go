package utils

import (
	"log"
	"time"

	"lms/config"

	"github.com/go-resty/resty/v2"
)

// CompletionEvent is the payload posted to the configured completion
// webhook when a course is completed or a certificate is issued.
type CompletionEvent struct {
	Event             string    `json:"event"` // course.completed, certificate.issued
	UserID            uint      `json:"user_id"`
	CourseID          uint      `json:"course_id"`
	CertificateNumber string    `json:"certificate_number,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// NotifyCompletionWebhook posts the event to COMPLETION_WEBHOOK_URL.
// Fire-and-forget: delivery failures are logged, never propagated, so the
// completion path cannot be broken by a slow or dead sink.
func NotifyCompletionWebhook(event CompletionEvent) {
	url := config.AppConfig.CompletionWebhookURL
	if url == "" {
		return
	}

	go func() {
		client := resty.New().SetTimeout(10 * time.Second).SetRetryCount(2)
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(event).
			Post(url)
		if err != nil {
			log.Printf("Error delivering %s webhook: %v", event.Event, err)
			return
		}
		if resp.IsError() {
			log.Printf("Webhook sink rejected %s event: %s", event.Event, resp.Status())
		}
	}()
}
