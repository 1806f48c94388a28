package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/layer-3/linker/core"
	"github.com/layer-3/linker/ports"
	"go.uber.org/zap"
)

// Upload counter statuses
const (
	StatusSuccess        = "success"
	StatusForbidden      = "forbidden"
	StatusInvalidRequest = "invalid_request"
	StatusError          = "error"
)

// Validator derives the signer of an AuthChain
type Validator interface {
	Validate(chain core.AuthChain) core.ValidationResult
}

// Authorizer answers authorization queries
type Authorizer interface {
	CheckAuthorization(address string) core.AuthorizationCheck
	CheckParcelAccess(address string, pointers []string) core.ParcelAccess
}

// Uploader forwards an approved entity downstream
type Uploader interface {
	Upload(ctx context.Context, entityID string, files core.UploadFiles) core.UploadOutcome
}

// EntitiesService handles entity deployments: it validates the caller's
// AuthChain, checks their parcel grants and forwards the upload.
type EntitiesService struct {
	validator  Validator
	authorizer Authorizer
	uploader   Uploader
	metrics    ports.UploadMetrics
	eventPub   ports.EventPublisher
	logger     *zap.Logger
}

// NewEntitiesService creates a new entities service. eventPub may be nil.
func NewEntitiesService(
	validator Validator,
	authorizer Authorizer,
	uploader Uploader,
	metrics ports.UploadMetrics,
	eventPub ports.EventPublisher,
	logger *zap.Logger,
) *EntitiesService {
	return &EntitiesService{
		validator:  validator,
		authorizer: authorizer,
		uploader:   uploader,
		metrics:    metrics,
		eventPub:   eventPub,
		logger:     logger,
	}
}

// Deploy runs the upload use case and returns the content server's response
// body verbatim. Errors are *core.ForbiddenError, *core.InvalidRequestError,
// *core.UploadError or, for unexpected failures, a plain error.
func (s *EntitiesService) Deploy(ctx context.Context, req core.EntityUploadRequest) (response []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic handling entity upload", zap.Any("panic", r), zap.Stack("stack"))
			response, err = nil, fmt.Errorf("unexpected error: %v", r)
		}
		s.record(err)
	}()

	return s.deploy(ctx, req)
}

func (s *EntitiesService) deploy(ctx context.Context, req core.EntityUploadRequest) ([]byte, error) {
	chain, ok := AuthChainFromFields(req.Fields)
	if !ok {
		return nil, core.Forbidden("No auth chain provided.")
	}

	validation := s.validator.Validate(chain)
	if !validation.OK {
		s.logger.Debug("Auth chain rejected", zap.String("reason", validation.Error))
		return nil, core.Forbidden("Invalid auth chain.")
	}

	signer := validation.SignerAddress
	if !s.authorizer.CheckAuthorization(signer).Authorized {
		return nil, core.Forbidden("Address not found.")
	}

	s.logger.Info("Signer found in authorizations list", zap.String("signerAddress", signer))

	entityID, ok := req.Fields["entityId"]
	if !ok || entityID == "" {
		return nil, core.InvalidRequest("Missing entityId.")
	}

	entityFile, ok := req.Files[entityID]
	if !ok {
		return nil, core.InvalidRequest("Missing entity file.")
	}

	var entity core.Entity
	if err := json.Unmarshal(entityFile, &entity); err != nil || entity.Pointers == nil {
		return nil, core.InvalidRequest("Invalid entity file.")
	}

	access := s.authorizer.CheckParcelAccess(signer, entity.Pointers)
	if !access.HasAccess {
		return nil, core.Forbidden(fmt.Sprintf("Missing access for %d parcels:\n%s",
			len(access.MissingParcels), strings.Join(access.MissingParcels, "; ")))
	}

	outcome := s.uploader.Upload(ctx, entityID, req.Files)
	if !outcome.Success() {
		message := outcome.Error
		if message == "" {
			message = "Upload failed"
		}
		return nil, &core.UploadError{Status: outcome.Status, Message: message}
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishEntityDeployed(ctx, entityID, signer, entity.Pointers); err != nil {
			s.logger.Warn("Failed to publish entity deployed event", zap.String("entityId", entityID), zap.Error(err))
		}
	}

	return outcome.Response, nil
}

// record counts and logs the terminal state of a deployment
func (s *EntitiesService) record(err error) {
	var (
		forbidden *core.ForbiddenError
		invalid   *core.InvalidRequestError
	)

	status := StatusSuccess
	switch {
	case err == nil:
	case errors.As(err, &forbidden):
		status = StatusForbidden
		s.logger.Warn("Forbidden error in entity upload", zap.Error(err))
	case errors.As(err, &invalid):
		status = StatusInvalidRequest
		s.logger.Warn("Invalid request in entity upload", zap.Error(err))
	default:
		status = StatusError
		s.logger.Error("Error handling entity upload", zap.Error(err))
	}

	s.metrics.IncEntityUpload(status)
}
