package linker

import (
	"context"
	"time"

	"github.com/layer-3/linker/core"
)

// Client represents the public interface for publishing through a linker server
type Client interface {
	// Deploy signs entityID and uploads the entity with its files.
	// On success it returns the content server's response untouched.
	Deploy(ctx context.Context, entityID string, files core.UploadFiles) ([]byte, error)

	// Status reports whether the server has loaded its authorizations
	Status(ctx context.Context) (*Status, error)
}

// Status is the payload of GET /status
type Status struct {
	Version        string             `json:"version"`
	Ready          bool               `json:"ready"`
	Authorizations AuthorizationStats `json:"authorizations"`
}

// AuthorizationStats describes the server's current authorizations snapshot
type AuthorizationStats struct {
	Addresses   int       `json:"addresses"`
	LastRefresh time.Time `json:"lastRefresh"`
	Environment string    `json:"environment"`
}
