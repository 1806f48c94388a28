package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/layer-3/linker/core"
	"github.com/layer-3/linker/ports"
	"go.uber.org/zap"
)

// secretsManagerAPI is the subset of the Secrets Manager client used here
type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretStore reads secrets from AWS Secrets Manager
type AWSSecretStore struct {
	svc    secretsManagerAPI
	region string
	logger *zap.Logger
}

// NewAWSSecretStore loads the default AWS configuration chain for region.
// endpoint, when set, overrides the service endpoint (e.g. LocalStack).
func NewAWSSecretStore(ctx context.Context, region, endpoint string, logger *zap.Logger) (ports.SecretStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	svc := secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	if endpoint != "" {
		logger.Info("Using custom endpoint for Secrets Manager", zap.String("endpoint", endpoint))
	}

	return &AWSSecretStore{svc: svc, region: region, logger: logger}, nil
}

// GetSecret returns the SecretString of secretID
func (s *AWSSecretStore) GetSecret(ctx context.Context, secretID string) (string, error) {
	s.logger.Info("Fetching secret from AWS Secrets Manager",
		zap.String("secretId", secretID),
		zap.String("region", s.region),
	)

	result, err := s.svc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", secretID, err)
	}
	if result.SecretString == nil || *result.SecretString == "" {
		return "", fmt.Errorf("secret %s: secret string is empty: %w", secretID, core.ErrSecretNotFound)
	}

	return *result.SecretString, nil
}
