package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atendo/booking-core/pkg/domain"
	"github.com/google/uuid"
)

type fakeTenantStore struct {
	tenants map[string]*domain.Tenant
}

func (s *fakeTenantStore) GetBySlug(_ context.Context, slug string) (*domain.Tenant, error) {
	t, ok := s.tenants[slug]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return t, nil
}

func TestResolveTenant(t *testing.T) {
	acme := &domain.Tenant{ID: uuid.New(), Slug: "acme", Name: "Acme"}
	store := &fakeTenantStore{tenants: map[string]*domain.Tenant{"acme": acme}}

	var gotID uuid.UUID
	var gotOK bool
	handler := ResolveTenant(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = GetTenantID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		host       string
		header     string
		wantStatus int
		wantTenant bool
	}{
		{"subdomain", "acme.booking.example.com", "", http.StatusOK, true},
		{"subdomain with port", "acme.booking.example.com:8080", "", http.StatusOK, true},
		{"header fallback", "booking.example.com", "acme", http.StatusOK, true},
		{"header wins over host", "other.example.com", "acme", http.StatusOK, true},
		{"unknown slug", "nope.example.com", "", http.StatusNotFound, false},
		{"bare host without header", "localhost", "", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotOK = uuid.Nil, false
			req := httptest.NewRequest(http.MethodGet, "/confirm-account", nil)
			req.Host = tt.host
			if tt.header != "" {
				req.Header.Set("X-Tenant", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantTenant {
				if !gotOK || gotID != acme.ID {
					t.Errorf("tenant in context = (%v, %v), want (%v, true)", gotID, gotOK, acme.ID)
				}
			}
		})
	}
}
