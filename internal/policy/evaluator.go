package policy

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openpolicy/civicdata/pkg/metrics"
)

const (
	// ActionRead and ActionWrite are the two action classes the authz policy
	// distinguishes. The fail-safe default only ever grants reads.
	ActionRead  = "read"
	ActionWrite = "write"

	ReasonRateLimited = "rate_limited"

	decisionCacheTTL = 30 * time.Second
)

// Decision is the verdict for one request. It is a value: nothing here is
// persisted beyond the short-lived cache.
type Decision struct {
	Role               Role   `json:"role"`
	Allowed            bool   `json:"allowed"`
	RateLimitRemaining int    `json:"rate_limit_remaining"`
	Reason             string `json:"reason,omitempty"`
}

type Health struct {
	Status        string `json:"status"`
	EngineVersion string `json:"opa_version,omitempty"`
}

// Evaluator gates requests with a local rate limiter and the external policy
// engine. When the engine is unreachable it degrades to a fail-safe default
// instead of failing requests outright.
type Evaluator struct {
	limiter *Limiter
	engine  EngineAPI

	cacheMu sync.Mutex
	cache   map[cacheKey]cachedDecision
	now     func() time.Time
}

type cacheKey struct {
	role     Role
	resource string
	action   string
	bucket   int64
}

type cachedDecision struct {
	decision EngineDecision
	expires  time.Time
}

func NewEvaluator(engine EngineAPI) *Evaluator {
	return &Evaluator{
		limiter: NewLimiter(),
		engine:  engine,
		cache:   make(map[cacheKey]cachedDecision),
		now:     time.Now,
	}
}

// NewEvaluatorWithClock is used by tests to control the hour bucket.
func NewEvaluatorWithClock(engine EngineAPI, now func() time.Time) *Evaluator {
	e := NewEvaluator(engine)
	e.now = now
	e.limiter = NewLimiterWithClock(now)
	return e
}

// Evaluate decides one request. Budget is reserved up front in one atomic
// step, so over-budget callers are rejected locally without contacting the
// engine and concurrent requests at the boundary cannot jointly exceed the
// budget. A reservation is refunded when the request is ultimately denied.
func (e *Evaluator) Evaluate(ctx context.Context, role Role, resource, action string) Decision {
	budget := role.HourlyBudget()

	remaining, ok := e.limiter.TryConsume(role.String(), budget)
	if !ok {
		metrics.IncreaseRateLimitRejectionsTotalMetric(role.String())
		metrics.IncreasePolicyDecisionsTotalMetric(role.String(), "rate_limited")
		return Decision{Role: role, Allowed: false, RateLimitRemaining: 0, Reason: ReasonRateLimited}
	}

	engineDecision, err := e.engineDecision(ctx, role, resource, action)
	if err != nil {
		zap.S().Named("policy").Warnw("policy engine unavailable, applying fail-safe default",
			"role", role.String(), "resource", resource, "action", action, "error", err)
		return e.failSafe(role, action, budget, remaining)
	}

	if !engineDecision.Allow {
		remaining = e.limiter.Refund(role.String(), budget)
		metrics.IncreasePolicyDecisionsTotalMetric(role.String(), "denied")
		reason := engineDecision.Reason
		if reason == "" {
			reason = "denied by policy"
		}
		return Decision{Role: role, Allowed: false, RateLimitRemaining: remaining, Reason: reason}
	}

	metrics.IncreasePolicyDecisionsTotalMetric(role.String(), "allowed")
	return Decision{Role: role, Allowed: true, RateLimitRemaining: remaining}
}

// failSafe bounds the blast radius of an engine outage: authenticated roles
// keep read access, anonymous callers and all mutations are denied. The
// caller already holds a budget reservation; denials hand it back.
func (e *Evaluator) failSafe(role Role, action string, budget, remaining int) Decision {
	if role.IsAuthenticated() && action == ActionRead {
		metrics.IncreasePolicyDecisionsTotalMetric(role.String(), "failsafe_allowed")
		return Decision{Role: role, Allowed: true, RateLimitRemaining: remaining}
	}

	metrics.IncreasePolicyDecisionsTotalMetric(role.String(), "failsafe_denied")
	return Decision{
		Role:               role,
		Allowed:            false,
		RateLimitRemaining: e.limiter.Refund(role.String(), budget),
		Reason:             "policy engine unavailable",
	}
}

func (e *Evaluator) engineDecision(ctx context.Context, role Role, resource, action string) (*EngineDecision, error) {
	key := cacheKey{role: role, resource: resource, action: action, bucket: e.now().Unix() / 3600}

	e.cacheMu.Lock()
	if cached, ok := e.cache[key]; ok && e.now().Before(cached.expires) {
		e.cacheMu.Unlock()
		decision := cached.decision
		return &decision, nil
	}
	e.cacheMu.Unlock()

	decision, err := e.engine.Decision(ctx, DecisionInput{
		Role:     role.String(),
		Resource: resource,
		Action:   action,
	})
	if err != nil {
		return nil, err
	}

	e.cacheMu.Lock()
	e.cache[key] = cachedDecision{decision: *decision, expires: e.now().Add(decisionCacheTTL)}
	// cap cache growth; entries from old buckets are useless anyway
	if len(e.cache) > 4096 {
		for k := range e.cache {
			if k.bucket != key.bucket {
				delete(e.cache, k)
			}
		}
	}
	e.cacheMu.Unlock()

	return decision, nil
}

// Health probes the engine. It is informational: a failing probe never
// denies requests by itself.
func (e *Evaluator) Health(ctx context.Context) Health {
	engineHealth, err := e.engine.Health(ctx)
	if err != nil {
		return Health{Status: "degraded"}
	}
	return Health{Status: engineHealth.Status, EngineVersion: engineHealth.Version}
}
