package notification

import (
	"fmt"
	"net/smtp"
	"time"
)

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// EmailService delivers confirmation links over SMTP. Message bodies
// are rendered here; the core never formats email.
type EmailService struct {
	config EmailConfig
}

func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

func (s *EmailService) SendVerificationEmail(to, verifyURL string, expiresAt time.Time) error {
	subject := "Verify Your Email Address"
	body := fmt.Sprintf(`<html><body>
		<h2>Verify Your Email Address</h2>
		<p>Please verify your email address to activate your account.</p>
		<p><a href="%s">Click here to verify your email</a></p>
		<p>Or copy this link to your browser: %s</p>
		<p>This link expires at %s.</p>
	</body></html>`, verifyURL, verifyURL, expiresAt.Format(time.RFC1123))
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) SendAppointmentEmail(to string, startAt time.Time, location, confirmURL, cancelURL string, expiresAt time.Time) error {
	subject := "Please Confirm Your Appointment"
	body := fmt.Sprintf(`<html><body>
		<h2>Your Appointment</h2>
		<p>An appointment has been scheduled for %s at %s.</p>
		<p><a href="%s">Confirm this appointment</a></p>
		<p><a href="%s">Cancel this appointment</a></p>
		<p>These links expire at %s.</p>
	</body></html>`,
		startAt.Format(time.RFC1123), location, confirmURL, cancelURL, expiresAt.Format(time.RFC1123))
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) SendCancellationEmail(to string, startAt time.Time) error {
	subject := "Your Appointment Was Cancelled"
	body := fmt.Sprintf(`<html><body>
		<h2>Appointment Cancelled</h2>
		<p>Your appointment scheduled for %s has been cancelled.</p>
		<p>If this was unexpected, please contact us to rebook.</p>
	</body></html>`, startAt.Format(time.RFC1123))
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg))
}
