package core

import "errors"

var (
	ErrNoSignature          = errors.New("no signature")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrInvalidOwner         = errors.New("invalid owner address")
	ErrUnsupportedLinkType  = errors.New("unsupported auth link type")
	ErrEphemeralExpired     = errors.New("ephemeral key expired")
	ErrMalformedEphemeral   = errors.New("malformed ephemeral payload")
	ErrUnexpectedPayload    = errors.New("signed payload does not match")
	ErrInvalidSigningSecret = errors.New("invalid signing secret")
	ErrSecretNotFound       = errors.New("secret not found")
)

// ForbiddenError is returned when the caller's identity or authorization fails.
// Its message is safe to expose to the caller.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// InvalidRequestError is returned when a required input is missing or malformed
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string { return e.Message }

// UploadError wraps a failed forward to the content service
type UploadError struct {
	Status  int
	Message string
}

func (e *UploadError) Error() string { return e.Message }

// Forbidden and InvalidRequest build the orchestrator's rejections
func Forbidden(message string) error      { return &ForbiddenError{Message: message} }
func InvalidRequest(message string) error { return &InvalidRequestError{Message: message} }
