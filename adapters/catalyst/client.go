package catalyst

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/layer-3/linker/ports"
	"go.uber.org/zap"
)

const (
	// UploadOrigin identifies this service to the content server
	UploadOrigin = "dcl_linker"

	entitiesPath         = "/content/entities"
	availableContentPath = "/content/available-content"
)

// FetchError is returned when the content server answers with a non-2xx status.
// Its message follows the format understood by FromMessage.
type FetchError struct {
	URL    string
	Status int
	Body   string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("Failed to fetch %s. Got status %d. Response was '%s'", e.URL, e.Status, e.Body)
}

// StatusCode returns the HTTP status returned by the content server
func (e *FetchError) StatusCode() int {
	return e.Status
}

// Client talks to a Catalyst content server
type Client struct {
	baseURL   string
	upload    *http.Client
	short     *http.Client
	cfTimeout string
	logger    *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithUploadTimeout sets the timeout for entity deployments
func WithUploadTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.upload.Timeout = timeout
		c.cfTimeout = strconv.Itoa(int(timeout.Seconds()))
	}
}

// WithRequestTimeout sets the timeout for every other request
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.short.Timeout = timeout
	}
}

// WithBaseURL overrides the https://<domain> base URL, mostly for tests
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewClient creates a client for the content server at domain
func NewClient(domain string, logger *zap.Logger, options ...ClientOption) ports.ContentClient {
	c := &Client{
		baseURL:   "https://" + strings.TrimRight(domain, "/"),
		upload:    &http.Client{Timeout: 10 * time.Minute},
		short:     &http.Client{Timeout: 30 * time.Second},
		cfTimeout: "600",
		logger:    logger,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// DeployEntity posts a multipart deployment body to /content/entities
func (c *Client) DeployEntity(ctx context.Context, body io.Reader, contentType string) ([]byte, error) {
	url := c.baseURL + entitiesPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upload-origin", UploadOrigin)
	req.Header.Set("X-Extend-CF-Timeout", c.cfTimeout)

	start := time.Now()
	resp, err := c.upload.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post %s: %w", url, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	c.logger.Debug("Catalyst responded",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: url, Status: resp.StatusCode, Body: string(payload)}
	}

	return payload, nil
}

// AvailableContent forwards an availability query. The caller owns the response body.
func (c *Client) AvailableContent(ctx context.Context, rawQuery string) (*http.Response, error) {
	url := c.baseURL + availableContentPath
	if rawQuery != "" {
		url += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.short.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	return resp, nil
}
