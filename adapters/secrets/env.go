package secrets

import (
	"context"
	"fmt"
	"os"

	"github.com/layer-3/linker/core"
	"github.com/layer-3/linker/ports"
)

// EnvSecretStore resolves a secret id as the name of an environment variable.
// Intended for local development.
type EnvSecretStore struct {
	lookup func(string) (string, bool)
}

// NewEnvSecretStore reads secrets from the process environment
func NewEnvSecretStore() ports.SecretStore {
	return &EnvSecretStore{lookup: os.LookupEnv}
}

func (s *EnvSecretStore) GetSecret(_ context.Context, secretID string) (string, error) {
	value, ok := s.lookup(secretID)
	if !ok || value == "" {
		return "", fmt.Errorf("environment variable %s: %w", secretID, core.ErrSecretNotFound)
	}
	return value, nil
}
