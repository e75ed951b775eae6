package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testIssuer = "booking-core-test"

var testSecret = []byte("test-secret-key")

func signToken(t *testing.T, secret []byte, issuer string, subject string, tenantID string, expiresIn time.Duration) string {
	t.Helper()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		TenantID: tenantID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestAuth(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	var gotUser, gotTenant uuid.UUID
	handler := Auth(testSecret, testIssuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = GetUserID(r.Context())
		gotTenant, _ = GetAuthTenantID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	valid := signToken(t, testSecret, testIssuer, userID.String(), tenantID.String(), time.Hour)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic " + valid, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, []byte("other-secret"), testIssuer, userID.String(), tenantID.String(), time.Hour), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signToken(t, testSecret, "someone-else", userID.String(), tenantID.String(), time.Hour), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, testIssuer, userID.String(), tenantID.String(), -time.Minute), http.StatusUnauthorized},
		{"non-uuid subject", "Bearer " + signToken(t, testSecret, testIssuer, "bob", tenantID.String(), time.Hour), http.StatusUnauthorized},
		{"non-uuid tenant", "Bearer " + signToken(t, testSecret, testIssuer, userID.String(), "acme", time.Hour), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser, gotTenant = uuid.Nil, uuid.Nil
			req := httptest.NewRequest(http.MethodGet, "/v1/schedules", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if gotUser != userID || gotTenant != tenantID {
					t.Errorf("context identity = (%v, %v), want (%v, %v)", gotUser, gotTenant, userID, tenantID)
				}
			}
		})
	}
}
