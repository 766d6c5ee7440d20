package httpadapter

import (
	"net/http"
	"strings"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

// authenticate resolves the bearer token to a tenant and writes the 401
// itself when that fails. The manual-management endpoints run through it.
func (rt *Router) authenticate(w http.ResponseWriter, r *http.Request) (*domain.Tenant, bool) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "bearer token is required")
		return nil, false
	}

	tenant, err := rt.tenants.ResolveToken(r.Context(), token)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), "unauthorized")
		return nil, false
	}
	return tenant, true
}

// optionalAuthenticate is the relaxed variant for the search endpoints: no
// Authorization header means the request proceeds unauthenticated and scopes
// itself through the body's tenant_id, but a header that is present must
// still resolve.
func (rt *Router) optionalAuthenticate(w http.ResponseWriter, r *http.Request) (*domain.Tenant, bool) {
	if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
		return nil, true
	}
	return rt.authenticate(w, r)
}

func bearerToken(headerValue string) string {
	headerValue = strings.TrimSpace(headerValue)
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
}
