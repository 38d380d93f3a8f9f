package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/PlanForge/internal/port/cache"
	"github.com/Strob0t/PlanForge/internal/port/database"
	"github.com/Strob0t/PlanForge/internal/port/planner"
)

const plannerHealthKey = "health:planner"

// Health is the liveness report served on /health.
type Health struct {
	PlannerHealthy bool
	PlannerURL     string
}

// HealthService reports the liveness of the planner and the database.
type HealthService struct {
	planner planner.Planner
	store   database.Store
	cache   cache.Cache
	ttl     time.Duration
	group   singleflight.Group
}

// NewHealthService creates a new HealthService.
func NewHealthService(p planner.Planner, store database.Store) *HealthService {
	return &HealthService{planner: p, store: store}
}

// SetCache caches planner probe results for ttl. A zero ttl disables caching.
func (s *HealthService) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	s.ttl = ttl
}

// Check probes the planner. Concurrent callers share one probe.
func (s *HealthService) Check(ctx context.Context) Health {
	return Health{
		PlannerHealthy: s.plannerHealthy(ctx),
		PlannerURL:     s.PlannerURL(),
	}
}

// PlannerURL returns the planner base URL.
func (s *HealthService) PlannerURL() string {
	return s.planner.BaseURL()
}

func (s *HealthService) plannerHealthy(ctx context.Context) bool {
	if s.cacheEnabled() {
		if v, ok, err := s.cache.Get(ctx, plannerHealthKey); err == nil && ok && len(v) == 1 {
			return v[0] == 1
		}
	}

	v, _, _ := s.group.Do(plannerHealthKey, func() (any, error) {
		healthy := s.planner.CheckHealth(context.WithoutCancel(ctx))
		if s.cacheEnabled() {
			b := byte(0)
			if healthy {
				b = 1
			}
			if err := s.cache.Set(ctx, plannerHealthKey, []byte{b}, s.ttl); err != nil {
				slog.WarnContext(ctx, "failed to cache planner health", "error", err)
			}
		}
		return healthy, nil
	})
	healthy, _ := v.(bool)
	return healthy
}

func (s *HealthService) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

// PingDatabase verifies storage connectivity.
func (s *HealthService) PingDatabase(ctx context.Context) error {
	return s.store.Ping(ctx)
}
