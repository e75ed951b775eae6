package notification

import (
	"fmt"
	"net/mail"
	"strings"
)

// LinkBuilder renders the confirmation URL shapes existing email
// templates rely on. Email verification links carry the base64url
// encoding in a query string; appointment links carry the 64-char
// encoding as a path segment.
type LinkBuilder struct {
	BaseURL string
}

func NewLinkBuilder(baseURL string) LinkBuilder {
	return LinkBuilder{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (b LinkBuilder) VerifyAccount(encodedToken string) string {
	return fmt.Sprintf("%s/confirm-account?token=%s", b.BaseURL, encodedToken)
}

func (b LinkBuilder) ConfirmSchedule(encodedToken string) string {
	return fmt.Sprintf("%s/schedules/confirm/%s", b.BaseURL, encodedToken)
}

func (b LinkBuilder) CancelSchedule(encodedToken string) string {
	return fmt.Sprintf("%s/schedules/cancel/%s", b.BaseURL, encodedToken)
}

const maxEmailLength = 254 // RFC 5321

// ValidateEmail checks a recipient address for format and length
// before a send is attempted.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email address is required")
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("email address is too long (max %d characters)", maxEmailLength)
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(normalized); err != nil {
		return fmt.Errorf("invalid email address format")
	}
	return nil
}
