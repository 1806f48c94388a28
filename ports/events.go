package ports

import "context"

// EventPublisher publishes events to notify other services and instances
type EventPublisher interface {
	PublishEntityDeployed(ctx context.Context, entityID, signer string, pointers []string) error
	PublishAuthorizationsRefreshed(ctx context.Context, addresses int) error
}
