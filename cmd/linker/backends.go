package main

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/linker/adapters/events"
	"github.com/layer-3/linker/adapters/grants"
	"github.com/layer-3/linker/adapters/secrets"
	"github.com/layer-3/linker/adapters/store"
	"github.com/layer-3/linker/internal/config"
	"github.com/layer-3/linker/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// backends are the shared pieces that move to Redis when it is configured.
// Only public data goes there: events and the last authorizations list.
type backends struct {
	publisher   message.Publisher
	grantsCache ports.Cache
}

func newBackends(cfg *config.Config, redisClient *redis.Client, logger watermill.LoggerAdapter) (*backends, error) {
	if redisClient == nil {
		return &backends{
			publisher:   gochannel.NewGoChannel(gochannel.Config{}, logger),
			grantsCache: store.NewMemoryStore(),
		}, nil
	}

	maxLen := int64(cfg.EventsStreamMax)
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
			Maxlens: map[string]int64{
				events.EntityDeployedTopic:          maxLen,
				events.AuthorizationsRefreshedTopic: maxLen,
			},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}

	return &backends{
		publisher:   publisher,
		grantsCache: store.NewRedisStore(redisClient),
	}, nil
}

// newSecretStore builds the configured secret provider behind the in-process cache
func newSecretStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SecretStore, error) {
	var secretStore ports.SecretStore
	switch cfg.SecretsProvider {
	case config.SecretsProviderEnv:
		secretStore = secrets.NewEnvSecretStore()
	default:
		var err error
		secretStore, err = secrets.NewAWSSecretStore(ctx, cfg.AWSRegion, cfg.AWSEndpoint, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create secret store: %w", err)
		}
	}
	return secrets.NewCachedSecretStore(secretStore, cfg.SecretCacheTTL, logger), nil
}

func newGrantsSource(cfg *config.Config, b *backends, logger *zap.Logger) ports.GrantsSource {
	return grants.NewCachedSource(
		grants.NewHTTPSource(cfg.AuthorizationsURL, cfg.HTTPClientTimeout),
		b.grantsCache,
		grants.DefaultCacheTTL,
		logger,
	)
}
