package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/linker/adapters/catalyst"
	"github.com/layer-3/linker/core"
	"github.com/layer-3/linker/internal/eth"
	"github.com/layer-3/linker/ports"
	"go.uber.org/zap"
)

// UploadProxy re-signs approved entities with the server wallet and forwards
// them to the content server. It performs no authorization of its own.
type UploadProxy struct {
	secrets       ports.SecretStore
	content       ports.ContentClient
	secretID      string
	secretTimeout time.Duration
	uploadTimeout time.Duration
	logger        *zap.Logger
}

// NewUploadProxy creates an upload proxy signing with the key stored under secretID
func NewUploadProxy(secrets ports.SecretStore, content ports.ContentClient, secretID string, logger *zap.Logger) *UploadProxy {
	return &UploadProxy{
		secrets:       secrets,
		content:       content,
		secretID:      secretID,
		secretTimeout: 30 * time.Second,
		uploadTimeout: 10 * time.Minute,
		logger:        logger,
	}
}

// WithTimeouts overrides the secret read and upload timeouts
func (p *UploadProxy) WithTimeouts(secret, upload time.Duration) *UploadProxy {
	p.secretTimeout = secret
	p.uploadTimeout = upload
	return p
}

// Upload signs entityID and posts it along with files. Failures are returned
// as outcomes, never as errors.
func (p *UploadProxy) Upload(ctx context.Context, entityID string, files core.UploadFiles) core.UploadOutcome {
	// In-flight uploads outlive a disconnecting caller; only the timeout stops them
	ctx = context.WithoutCancel(ctx)

	signer, err := p.loadSigner(ctx)
	if err != nil {
		return p.failure(entityID, err)
	}

	signature, err := signer.SignMessage(entityID)
	if err != nil {
		return p.failure(entityID, err)
	}
	chain := core.SimpleAuthChain(entityID, signer.Address(), signature)

	body, contentType, err := catalyst.EncodeDeployment(entityID, chain, files)
	if err != nil {
		return p.failure(entityID, err)
	}

	p.logger.Info("Uploading to Catalyst", zap.String("entityId", entityID), zap.Int("files", len(files)))

	uploadCtx, cancel := context.WithTimeout(ctx, p.uploadTimeout)
	defer cancel()

	response, err := p.content.DeployEntity(uploadCtx, body, contentType)
	if err != nil {
		return p.failure(entityID, err)
	}

	p.logger.Info("Catalyst post response", zap.String("entityId", entityID), zap.ByteString("response", response))
	return core.UploadSuccess(response)
}

func (p *UploadProxy) loadSigner(ctx context.Context) (ports.Signer, error) {
	secretCtx, cancel := context.WithTimeout(ctx, p.secretTimeout)
	defer cancel()

	secret, err := p.secrets.GetSecret(secretCtx, p.secretID)
	if err != nil {
		return nil, fmt.Errorf("failed to get signing secret: %w", err)
	}

	key, err := privateKeyFromSecret(secret)
	if err != nil {
		return nil, err
	}

	signer, err := eth.NewKeySigner(key)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, core.ErrInvalidSigningSecret)
	}
	return signer, nil
}

func (p *UploadProxy) failure(entityID string, err error) core.UploadOutcome {
	p.logger.Error("Error uploading to Catalyst", zap.String("entityId", entityID), zap.Error(err))

	if parsed := catalyst.FromError(err); parsed != nil {
		return core.UploadStructuredFailure(parsed.Status, parsed.Message)
	}
	return core.UploadOpaqueFailure(err.Error())
}

// privateKeyFromSecret accepts {"private_key": "0x..."} or a bare hex key
func privateKeyFromSecret(secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	if strings.HasPrefix(secret, "{") {
		var payload struct {
			PrivateKey string `json:"private_key"`
		}
		if err := json.Unmarshal([]byte(secret), &payload); err != nil {
			return "", fmt.Errorf("failed to parse secret: %w", core.ErrInvalidSigningSecret)
		}
		if payload.PrivateKey == "" {
			return "", fmt.Errorf("secret has no private_key: %w", core.ErrInvalidSigningSecret)
		}
		return payload.PrivateKey, nil
	}
	if secret == "" {
		return "", core.ErrInvalidSigningSecret
	}
	return secret, nil
}
