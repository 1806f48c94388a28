package ports

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// SecretStore returns secret values by identifier
type SecretStore interface {
	GetSecret(ctx context.Context, secretID string) (string, error)
}

// GrantsSource fetches the raw authorization grant records
type GrantsSource interface {
	FetchGrants(ctx context.Context) ([]json.RawMessage, error)
}

// ContentClient talks to the downstream content service
type ContentClient interface {
	// DeployEntity posts a multipart deployment and returns the raw response body
	DeployEntity(ctx context.Context, body io.Reader, contentType string) ([]byte, error)
	// AvailableContent proxies an availability query
	AvailableContent(ctx context.Context, rawQuery string) (*http.Response, error)
}

// UploadMetrics records entity upload outcomes
type UploadMetrics interface {
	IncEntityUpload(status string)
}
