package linker

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoSigner is returned when the client was built without a signer
var ErrNoSigner = errors.New("client has no signer")

// ServerError is a non-2xx answer from the linker server
type ServerError struct {
	Status  int    `json:"-"`
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("linker server answered %d: %s", e.Status, e.Kind)
	}
	return fmt.Sprintf("linker server answered %d: %s", e.Status, e.Message)
}

// StatusCode lets the error be translated like any other HTTP failure
func (e *ServerError) StatusCode() int {
	return e.Status
}

// IsForbidden reports whether err is a rejection of the signer or its parcels
func IsForbidden(err error) bool {
	var serverErr *ServerError
	return errors.As(err, &serverErr) && serverErr.Status == http.StatusForbidden
}
