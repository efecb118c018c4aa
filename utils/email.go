package utils

import (
	"context"
	"log"

	"gopkg.in/gomail.v2"

	"motorent/database"
)

// SendEmail sends a plain-text email using the SMTP credentials from the
// site settings row. Notification email is best-effort: any failure is
// logged and swallowed so the caller's primary operation is never blocked.
func SendEmail(ctx context.Context, to, subject, body string) {
	settings, err := database.GetSiteSettings(ctx)
	if err != nil {
		log.Printf("Email skipped, settings unavailable: %v", err)
		return
	}

	if settings.SMTPHost == "" || settings.SMTPFrom == "" {
		log.Printf("Email skipped, SMTP not configured (to=%s subject=%q)", to, subject)
		return
	}

	m := gomail.NewMessage()
	m.SetHeader("From", settings.SMTPFrom)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(settings.SMTPHost, settings.SMTPPort, settings.SMTPUser, settings.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		log.Printf("Failed to send email to %s: %v", to, err)
	}
}
