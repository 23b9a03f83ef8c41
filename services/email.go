package services

import (
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"

	"case_track_app_go/config"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// BuildClientAccessCodeEmail builds the message a client receives after a
// case is created for them, carrying the access code used for lookups.
func BuildClientAccessCodeEmail(toEmail, clientName, clientCode, firmName string) *Email {
	html := fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>Your case has been created at <strong>%s</strong>.</p>"+
			"<p><strong>Your Code:</strong> <code>%s</code></p>"+
			"<p>Use this code to look up your case status at any time.</p>",
		clientName, firmName, clientCode,
	)
	text := fmt.Sprintf(
		"Hi %s,\n\nYour case has been created at %s.\nYour code: %s\nUse this code to look up your case status at any time.\n",
		clientName, firmName, clientCode,
	)

	return &Email{
		To:       []string{toEmail},
		Subject:  "Your case access code",
		HTMLBody: html,
		TextBody: text,
	}
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	// In development mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	client := resend.NewClient(cfg.ResendAPIKey)
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}

	if _, err := client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendEmailAsync sends an email in a goroutine, logging failures
func SendEmailAsync(cfg *config.Config, email *Email) {
	go func() {
		if err := SendEmail(cfg, email); err != nil {
			log.Printf("[WARNING] Async email to %v failed: %v", email.To, err)
		}
	}()
}

func logEmailToConsole(email *Email) {
	log.Printf("---- EMAIL (test mode) ----")
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("%s", email.TextBody)
	log.Printf("---------------------------")
}
