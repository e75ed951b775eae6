package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/atendo/booking-core/internal/httputil"
	"github.com/atendo/booking-core/pkg/domain"
	"github.com/google/uuid"
)

// TenantIDKey is the context key for the tenant resolved from the
// request.
const TenantIDKey contextKey = "tenant_id"

// TenantStore is the lookup needed to resolve a tenant slug.
type TenantStore interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
}

// ResolveTenant resolves the tenant scope of a request. Confirmation
// links are served per-tenant (the base URL is tenant-specific), so
// the tenant comes from the first host label, with an X-Tenant header
// fallback for deployments behind a shared domain. An unresolvable
// tenant is a plain 404; no hint about which part failed.
func ResolveTenant(tenants TenantStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := r.Header.Get("X-Tenant")
			if slug == "" {
				host := r.Host
				if i := strings.IndexByte(host, ':'); i >= 0 {
					host = host[:i]
				}
				if i := strings.IndexByte(host, '.'); i > 0 {
					slug = host[:i]
				}
			}
			if slug == "" {
				httputil.Error(w, http.StatusNotFound, "not found")
				return
			}

			tenant, err := tenants.GetBySlug(r.Context(), slug)
			if err != nil {
				httputil.Error(w, http.StatusNotFound, "not found")
				return
			}

			ctx := context.WithValue(r.Context(), TenantIDKey, tenant.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTenantID extracts the resolved tenant ID from the context.
func GetTenantID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(TenantIDKey).(uuid.UUID)
	return id, ok
}
