package core

// UploadFiles maps multipart field names to file contents
type UploadFiles map[string][]byte

// UploadOutcomeKind tags the variant held by an UploadOutcome
type UploadOutcomeKind int

const (
	UploadSucceeded UploadOutcomeKind = iota
	UploadFailedStructured
	UploadFailedOpaque
)

// UploadOutcome is the result of forwarding an entity to the content service.
// Response is set for UploadSucceeded, Status only for UploadFailedStructured.
type UploadOutcome struct {
	Kind     UploadOutcomeKind
	Response []byte
	Status   int
	Error    string
}

// Success reports whether the upload was accepted downstream
func (o UploadOutcome) Success() bool {
	return o.Kind == UploadSucceeded
}

// UploadSuccess wraps the content service's response body
func UploadSuccess(response []byte) UploadOutcome {
	return UploadOutcome{Kind: UploadSucceeded, Response: response}
}

// UploadStructuredFailure is a failure whose status and message were read from the downstream error
func UploadStructuredFailure(status int, message string) UploadOutcome {
	return UploadOutcome{Kind: UploadFailedStructured, Status: status, Error: message}
}

// UploadOpaqueFailure is a failure with no usable downstream status
func UploadOpaqueFailure(message string) UploadOutcome {
	return UploadOutcome{Kind: UploadFailedOpaque, Error: message}
}

// Entity is the part of an uploaded entity file this service inspects.
// Pointers is nil when the file has no pointers list.
type Entity struct {
	Pointers []string `json:"pointers"`
}

// EntityUploadRequest is an inbound deployment as parsed from the multipart form
type EntityUploadRequest struct {
	Fields map[string]string
	Files  UploadFiles
}
