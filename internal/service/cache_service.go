package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
)

const analyticsCacheNamespace = "analytics"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts a CacheRepository with hit/miss metrics and collapses
// concurrent recomputation of the same key.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
	flight     singleflight.Group
	// generation advances on every invalidation.
	generation atomic.Uint64
}

// NewCacheService constructs a cache service. A non-positive defaultTTL means five minutes.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get decodes a cached entry into dest and reports whether it was found.
// A miss is not an error.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores the value in cache. A non-positive ttl uses the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	s.generation.Add(1)
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// InvalidateNamespace drops every key under namespace.
func (s *CacheService) InvalidateNamespace(ctx context.Context, namespace string) error {
	return s.Invalidate(ctx, namespace+":*")
}

// cached returns the entry at key, or runs compute once per key across
// concurrent callers and stores the result. A result is not stored when an
// invalidation ran while it was computed. Store failures are logged by Set and
// never fail the call.
func cached[T any](ctx context.Context, s *CacheService, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, bool, error) {
	var out T
	if !s.Enabled() {
		out, err := compute(ctx)
		return out, false, err
	}
	if hit, err := s.Get(ctx, key, &out); err == nil && hit {
		return out, true, nil
	}

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		gen := s.generation.Load()
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if s.generation.Load() != gen {
			s.logger.Debug("cache entry invalidated during compute", zap.String("key", key))
			return value, nil
		}
		_ = s.Set(ctx, key, value, ttl)
		return value, nil
	})
	if err != nil {
		return out, false, err
	}
	return v.(T), false, nil
}

// cacheKey joins a namespace and parts with colons, skipping empty parts.
func cacheKey(namespace string, parts ...string) string {
	segments := []string{namespace}
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return strings.Join(segments, ":")
}
