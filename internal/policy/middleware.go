package policy

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// RoleResolver extracts the caller's role from a request. It is a function
// so the gate does not depend on any particular authentication scheme.
type RoleResolver func(r *http.Request) Role

type deniedResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func (d deniedResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// Gate evaluates every request against the policy engine and the per-role
// rate limits. Denied requests never reach the wrapped handler.
func Gate(evaluator *Evaluator, resolveRole RoleResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := resolveRole(r)
			decision := evaluator.Evaluate(r.Context(), role, resourceFromRequest(r), actionFromMethod(r.Method))

			setRateLimitHeaders(w, role, decision)

			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			status := http.StatusForbidden
			errText := "forbidden"
			if decision.Reason == ReasonRateLimited {
				status = http.StatusTooManyRequests
				errText = "rate limit exceeded"
			}
			render.Status(r, status)
			_ = render.Render(w, r, deniedResponse{Error: errText, Reason: decision.Reason})
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, role Role, decision Decision) {
	budget := role.HourlyBudget()
	if budget == Unlimited {
		return
	}
	remaining := decision.RateLimitRemaining
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(budget))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
}

// resourceFromRequest prefers the chi route pattern so decisions cache by
// endpoint instead of by concrete URL.
func resourceFromRequest(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func actionFromMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ActionRead
	default:
		return ActionWrite
	}
}
