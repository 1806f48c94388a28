package grants

import (
	"context"
	"encoding/json"
	"time"

	"github.com/layer-3/linker/ports"
	"go.uber.org/zap"
)

const (
	lastGrantsKey = "authorizations:last"

	// DefaultCacheTTL bounds how stale a fallback list may be
	DefaultCacheTTL = 24 * time.Hour
)

// CachedSource remembers the last list fetched from upstream and serves it
// while the upstream is unreachable, so a replica starting during an outage
// still knows who may publish.
type CachedSource struct {
	next   ports.GrantsSource
	cache  ports.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSource wraps next, storing every successful fetch in cache for ttl
func NewCachedSource(next ports.GrantsSource, cache ports.Cache, ttl time.Duration, logger *zap.Logger) ports.GrantsSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{next: next, cache: cache, ttl: ttl, logger: logger}
}

// FetchGrants returns the upstream list, or the last one seen when upstream fails
func (s *CachedSource) FetchGrants(ctx context.Context) ([]json.RawMessage, error) {
	records, err := s.next.FetchGrants(ctx)
	if err == nil {
		s.remember(ctx, records)
		return records, nil
	}

	cached, ok, cacheErr := s.cache.Get(ctx, lastGrantsKey)
	if cacheErr != nil {
		s.logger.Warn("Grants cache unavailable", zap.Error(cacheErr))
		return nil, err
	}
	if !ok {
		return nil, err
	}

	var fallback []json.RawMessage
	if jsonErr := json.Unmarshal([]byte(cached), &fallback); jsonErr != nil {
		s.logger.Warn("Discarding unreadable cached grants", zap.Error(jsonErr))
		return nil, err
	}

	s.logger.Warn("Grants source unavailable, serving the last fetched list",
		zap.Int("records", len(fallback)), zap.Error(err))
	return fallback, nil
}

func (s *CachedSource) remember(ctx context.Context, records []json.RawMessage) {
	payload, err := json.Marshal(records)
	if err != nil {
		s.logger.Warn("Failed to encode grants for caching", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, lastGrantsKey, string(payload), s.ttl); err != nil {
		s.logger.Warn("Failed to cache grants", zap.Error(err))
	}
}
