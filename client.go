package linker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/layer-3/linker/adapters/catalyst"
	"github.com/layer-3/linker/core"
	"github.com/layer-3/linker/ports"
)

// HTTPClient talks to a linker server over HTTP, signing every deployment
// with its own key.
type HTTPClient struct {
	baseURL string
	signer  ports.Signer
	http    *http.Client
}

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithHTTPClient replaces the default client, which times out after 10 minutes
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) { c.http = client }
}

// NewClient creates a client for the server at baseURL. signer may be nil
// for clients that only read the server status.
func NewClient(baseURL string, signer ports.Signer, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
		http:    &http.Client{Timeout: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

// Deploy signs entityID and posts the entity to /content/entities
func (c *HTTPClient) Deploy(ctx context.Context, entityID string, files core.UploadFiles) ([]byte, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}

	signature, err := c.signer.SignMessage(entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign entity: %w", err)
	}
	chain := core.SimpleAuthChain(entityID, c.signer.Address(), signature)

	body, contentType, err := catalyst.EncodeDeployment(entityID, chain, files)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/content/entities", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	return c.do(req)
}

// Status reads /status
func (c *HTTPClient) Status(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	payload, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var status Status
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &status, nil
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serverErr := &ServerError{}
		if json.Unmarshal(payload, serverErr) != nil {
			serverErr.Kind = http.StatusText(resp.StatusCode)
			serverErr.Message = string(payload)
		}
		serverErr.Status = resp.StatusCode
		return nil, serverErr
	}

	return payload, nil
}
