package utils

import (
	"fmt"
	"os"

	"gopkg.in/gomail.v2"
)

// SendAdminAlertMail emails the operations admin over SMTP. Used by the
// distribution runner after retry exhaustion; failures here are logged by the
// caller, never fatal.
func SendAdminAlertMail(subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	adminEmail := os.Getenv("ADMIN_ALERT_EMAIL")
	if smtpHost == "" || adminEmail == "" {
		return fmt.Errorf("SMTP_HOST and ADMIN_ALERT_EMAIL are required for admin alert mail")
	}
	smtpPort := 587
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &smtpPort)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", adminEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	return d.DialAndSend(m)
}
