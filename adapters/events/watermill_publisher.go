package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/linker/ports"
)

const (
	// EntityDeployedTopic receives an event for every entity forwarded to the content server
	EntityDeployedTopic = "linker.entity_deployed"

	// AuthorizationsRefreshedTopic receives an event for every successful registry refresh
	AuthorizationsRefreshedTopic = "linker.authorizations_refreshed"
)

// EntityDeployedEvent represents a successful deployment
type EntityDeployedEvent struct {
	EntityID   string    `json:"entity_id"`
	Signer     string    `json:"signer"`
	Pointers   []string  `json:"pointers"`
	DeployedAt time.Time `json:"deployed_at"`
}

// AuthorizationsRefreshedEvent represents a new authorizations snapshot
type AuthorizationsRefreshedEvent struct {
	Addresses   int       `json:"addresses"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishEntityDeployed publishes a deployment event
func (p *WatermillPublisher) PublishEntityDeployed(ctx context.Context, entityID, signer string, pointers []string) error {
	return p.publish(ctx, EntityDeployedTopic, EntityDeployedEvent{
		EntityID:   entityID,
		Signer:     signer,
		Pointers:   pointers,
		DeployedAt: time.Now().UTC(),
	})
}

// PublishAuthorizationsRefreshed publishes a refresh event
func (p *WatermillPublisher) PublishAuthorizationsRefreshed(ctx context.Context, addresses int) error {
	return p.publish(ctx, AuthorizationsRefreshedTopic, AuthorizationsRefreshedEvent{
		Addresses:   addresses,
		RefreshedAt: time.Now().UTC(),
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
