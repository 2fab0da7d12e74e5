package auth

import (
	"context"
	"net/http"

	"github.com/openpolicy/civicdata/internal/policy"
)

type identityKeyType struct{}

var identityKey identityKeyType

// Identity is the authenticated caller. Anonymous requests still carry an
// Identity so downstream code never branches on a missing value.
type Identity struct {
	Subject string
	Role    policy.Role
}

func Anonymous() Identity {
	return Identity{Subject: "anonymous", Role: policy.RoleAnonymous}
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	val := ctx.Value(identityKey)
	if val == nil {
		return Identity{}, false
	}
	return val.(Identity), true
}

func newContext(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// RoleFromRequest is the policy.RoleResolver used by the api server's gate.
func RoleFromRequest(r *http.Request) policy.Role {
	identity, found := IdentityFromContext(r.Context())
	if !found {
		return policy.RoleAnonymous
	}
	return identity.Role
}
