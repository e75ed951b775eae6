package notification

import (
	"strings"
	"testing"
)

func TestLinkBuilder(t *testing.T) {
	b := NewLinkBuilder("https://acme.booking.example.com/")

	if got := b.VerifyAccount("tok"); got != "https://acme.booking.example.com/confirm-account?token=tok" {
		t.Errorf("VerifyAccount = %q", got)
	}
	if got := b.ConfirmSchedule("tok"); got != "https://acme.booking.example.com/schedules/confirm/tok" {
		t.Errorf("ConfirmSchedule = %q", got)
	}
	if got := b.CancelSchedule("tok"); got != "https://acme.booking.example.com/schedules/cancel/tok" {
		t.Errorf("CancelSchedule = %q", got)
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid", "pat@example.com", false},
		{"valid with name part", "pat.smith+tag@example.co.uk", false},
		{"empty", "", true},
		{"no at sign", "patexample.com", true},
		{"no domain", "pat@", true},
		{"spaces inside", "pat smith@example.com", true},
		{"too long", strings.Repeat("a", 250) + "@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}
