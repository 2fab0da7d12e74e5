package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/openpolicy/civicdata/internal/policy"
)

const apiKeyHeader = "X-API-Key"

// APIKeyAuthenticator resolves a static api key to a role. Requests without
// a key, or with an unknown key, proceed as anonymous rather than being
// rejected; the policy gate decides what anonymous callers may do.
type APIKeyAuthenticator struct {
	roles map[string]policy.Role
}

func NewAPIKeyAuthenticator(keys map[string]string) (*APIKeyAuthenticator, error) {
	roles := make(map[string]policy.Role, len(keys))
	for key, roleName := range keys {
		role, known := policy.ParseRole(roleName)
		if !known {
			zap.S().Named("auth").Warnf("api key configured with unknown role '%s', treating as anonymous", roleName)
		}
		roles[key] = role
	}
	return &APIKeyAuthenticator{roles: roles}, nil
}

func (a *APIKeyAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := Anonymous()

		if key := keyFromRequest(r); key != "" {
			if role, found := a.roles[key]; found {
				identity = Identity{Subject: key, Role: role}
			}
		}

		next.ServeHTTP(w, r.WithContext(newContext(r.Context(), identity)))
	})
}

func keyFromRequest(r *http.Request) string {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return key
	}
	// Authorization: Bearer <key> is accepted for clients that cannot set
	// custom headers.
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}
