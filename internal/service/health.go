package service

import (
	"context"

	"github.com/openpolicy/civicdata/internal/policy"
	"github.com/openpolicy/civicdata/internal/store"
)

type HealthService struct {
	store     store.Store
	evaluator *policy.Evaluator
}

func NewHealthService(s store.Store, evaluator *policy.Evaluator) *HealthService {
	return &HealthService{store: s, evaluator: evaluator}
}

// Health checks the database by running the cheapest query we have.
func (s *HealthService) Health(ctx context.Context) string {
	if _, err := s.store.Statistics(ctx); err != nil {
		return "degraded"
	}
	return "ok"
}

// PolicyHealth reports the policy engine state. Informational: the API keeps
// serving under the fail-safe default while the engine is down.
func (s *HealthService) PolicyHealth(ctx context.Context) policy.Health {
	return s.evaluator.Health(ctx)
}
