package grants

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/layer-3/linker/ports"
)

// DefaultURL is the public list of linker authorizations
const DefaultURL = "https://decentraland.github.io/linker-server-authorizations/authorizations.json"

// HTTPSource fetches grant records from a JSON document served over HTTP
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a grants source for url
func NewHTTPSource(url string, timeout time.Duration) ports.GrantsSource {
	if url == "" {
		url = DefaultURL
	}
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// FetchGrants returns the raw records of the grants array. Individual records
// are left undecoded so a malformed one does not invalidate the whole list.
func (s *HTTPSource) FetchGrants(ctx context.Context) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("failed to fetch %s: status %d: %s", s.url, resp.StatusCode, body)
	}

	var records []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode grants: %w", err)
	}

	return records, nil
}
