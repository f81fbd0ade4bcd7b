package utils

import (
	"fmt"
	"log"
	"net/http"

	"lms/config"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendEmail sends an HTML email through Sendgrid. Skipped (with a log line)
// when no API key is configured so local setups work without credentials.
func SendEmail(toName, toEmail, subject, htmlBody string) error {
	if config.AppConfig.SendgridApiKey == "" {
		log.Printf("Sendgrid disabled, skipping email to %s: %s", toEmail, subject)
		return nil
	}

	from := mail.NewEmail("LMS", config.AppConfig.EmailSender)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	client := sendgrid.NewSendClient(config.AppConfig.SendgridApiKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("Error sending email to %s: %v", toEmail, err)
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		log.Printf("Sendgrid rejected email to %s: %d %s", toEmail, resp.StatusCode, resp.Body)
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// SendCertificateEmail notifies a user that their course certificate has
// been issued, with the public verification link.
func SendCertificateEmail(userName, userEmail, courseName, verifyURL string) error {
	subject := fmt.Sprintf("Your certificate for %s is ready", courseName)
	body := getEmailTemplate("Congratulations, "+userName+"!", fmt.Sprintf(`
		<p>You have completed the course <strong>%s</strong>.</p>
		<p>Your certificate has been issued and can be verified by anyone at the link below:</p>
		<a class="btn" href="%s">Verify Certificate</a>
		<div class="info-box">You can download the PDF from your certificates page at any time.</div>
	`, courseName, verifyURL))

	return SendEmail(userName, userEmail, subject, body)
}

// HTML wrapper for a consistent look across notification emails
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #1852AB; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1A1A2E; line-height: 1.6; }
			.content h2 { color: #1852AB; margin-top: 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.btn { display: inline-block; padding: 12px 24px; background-color: #1852AB; color: #FFFFFF; text-decoration: none; border-radius: 4px; font-weight: bold; margin-top: 20px; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #1852AB; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>LEARNING PLATFORM</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; 2026 Learning Platform. All rights reserved.
			</div>
		</div>
	</body>
	</html>`, title, bodyContent)
}
