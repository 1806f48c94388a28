package secrets

import (
	"context"
	"time"

	"github.com/layer-3/linker/adapters/store"
	"github.com/layer-3/linker/ports"
	"go.uber.org/zap"
)

// DefaultCacheTTL is how long a fetched secret is reused
const DefaultCacheTTL = time.Hour

// CachedSecretStore serves secrets from a process-local cache, falling back
// to the wrapped store. Secrets never leave the process.
type CachedSecretStore struct {
	next   ports.SecretStore
	cache  ports.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSecretStore wraps next with an in-memory cache keeping each secret for ttl
func NewCachedSecretStore(next ports.SecretStore, ttl time.Duration, logger *zap.Logger) ports.SecretStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSecretStore{next: next, cache: store.NewMemoryStore(), ttl: ttl, logger: logger}
}

// GetSecret returns the cached value of secretID, fetching it on a miss
func (s *CachedSecretStore) GetSecret(ctx context.Context, secretID string) (string, error) {
	key := "aws-secret:" + secretID

	if cached, ok, _ := s.cache.Get(ctx, key); ok {
		s.logger.Debug("Returning cached secret", zap.String("secretId", secretID))
		return cached, nil
	}

	value, err := s.next.GetSecret(ctx, secretID)
	if err != nil {
		return "", err
	}

	_ = s.cache.Set(ctx, key, value, s.ttl)
	s.logger.Debug("Secret fetched and cached successfully", zap.String("secretId", secretID))

	return value, nil
}
