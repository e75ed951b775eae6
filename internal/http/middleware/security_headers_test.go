package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atendo/booking-core/internal/config"
)

func applyHeaders(t *testing.T, cfg config.SecurityHeadersConfig) http.Header {
	t.Helper()
	handler := SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/confirm/abc", nil))
	return w.Header()
}

func TestSecurityHeaders(t *testing.T) {
	cfg := config.SecurityHeadersConfig{
		Enabled:            true,
		CSP:                "default-src 'none'; frame-ancestors 'none'",
		HSTSMaxAge:         31536000,
		FrameOptions:       "DENY",
		ContentTypeOptions: "nosniff",
		XSSProtection:      "1; mode=block",
		ReferrerPolicy:     "no-referrer",
		PermissionsPolicy:  "geolocation=(), camera=()",
	}
	h := applyHeaders(t, cfg)

	want := map[string]string{
		"Content-Security-Policy":   cfg.CSP,
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"X-Frame-Options":           cfg.FrameOptions,
		"X-Content-Type-Options":    cfg.ContentTypeOptions,
		"X-XSS-Protection":          cfg.XSSProtection,
		"Referrer-Policy":           cfg.ReferrerPolicy,
		"Permissions-Policy":        cfg.PermissionsPolicy,
	}
	for name, value := range want {
		if got := h.Get(name); got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}
}

func TestSecurityHeaders_Disabled(t *testing.T) {
	h := applyHeaders(t, config.SecurityHeadersConfig{
		Enabled: false,
		CSP:     "default-src 'none'",
	})
	if got := h.Get("Content-Security-Policy"); got != "" {
		t.Errorf("disabled middleware set CSP %q", got)
	}
}

func TestSecurityHeaders_SkipsEmptyValues(t *testing.T) {
	h := applyHeaders(t, config.SecurityHeadersConfig{
		Enabled:            true,
		ContentTypeOptions: "nosniff",
	})
	if got := h.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	for _, name := range []string{
		"Content-Security-Policy",
		"Strict-Transport-Security",
		"X-Frame-Options",
		"Referrer-Policy",
	} {
		if got := h.Get(name); got != "" {
			t.Errorf("%s = %q, want unset", name, got)
		}
	}
}
