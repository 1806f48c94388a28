package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/linker/core"
	"github.com/layer-3/linker/ports"
	"github.com/layer-3/linker/service"
	"go.uber.org/zap"
)

// maxMultipartMemory is how much of a deployment is kept in memory before spilling to disk
const maxMultipartMemory = 64 << 20

// Deployer runs the entity upload use case
type Deployer interface {
	Deploy(ctx context.Context, req core.EntityUploadRequest) ([]byte, error)
}

// EntityHandlers contains HTTP handlers for content endpoints
type EntityHandlers struct {
	entities Deployer
	content  ports.ContentClient
	logger   *zap.Logger
}

// NewEntityHandlers creates new content handlers
func NewEntityHandlers(entities Deployer, content ports.ContentClient, logger *zap.Logger) *EntityHandlers {
	return &EntityHandlers{
		entities: entities,
		content:  content,
		logger:   logger,
	}
}

// Deploy handles POST /content/entities
func (h *EntityHandlers) Deploy(c *gin.Context) {
	req, err := readUploadRequest(c.Request)
	if err != nil {
		h.logger.Warn("Failed to parse deployment", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad request", "message": "Invalid multipart body."})
		return
	}

	response, err := h.entities.Deploy(c.Request.Context(), req)
	if err != nil {
		var (
			forbidden *core.ForbiddenError
			invalid   *core.InvalidRequestError
		)

		switch {
		case errors.As(err, &forbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden", "message": forbidden.Message})
		case errors.As(err, &invalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Bad request", "message": invalid.Message})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "message": err.Error()})
		}
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", response)
}

// AvailableContent proxies GET /content/available-content to the Catalyst
func (h *EntityHandlers) AvailableContent(c *gin.Context) {
	resp, err := h.content.AvailableContent(c.Request.Context(), c.Request.URL.RawQuery)
	if err != nil {
		h.logger.Error("Error proxying available-content request", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch available content from Catalyst"})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		h.logger.Error("Error proxying available-content request", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch available content from Catalyst"})
		return
	}

	for key, values := range resp.Header {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "content-type") || strings.HasPrefix(lower, "access-control-") {
			for _, value := range values {
				c.Writer.Header().Add(key, value)
			}
		}
	}
	c.Status(resp.StatusCode)
	_, _ = c.Writer.Write(body)
}

// readUploadRequest collects form fields and files. A body that is not
// multipart yields only its url-encoded fields.
func readUploadRequest(r *http.Request) (core.EntityUploadRequest, error) {
	req := core.EntityUploadRequest{
		Fields: map[string]string{},
		Files:  core.UploadFiles{},
	}

	err := r.ParseMultipartForm(maxMultipartMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return req, err
	}

	for key, values := range r.PostForm {
		if len(values) > 0 {
			req.Fields[key] = values[0]
		}
	}

	if r.MultipartForm == nil {
		return req, nil
	}
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			req.Fields[key] = values[0]
		}
	}
	for key, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		content, err := readFile(headers[0])
		if err != nil {
			return req, fmt.Errorf("failed to read file %s: %w", key, err)
		}
		req.Files[key] = content
	}

	return req, nil
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// RegistryStatus is the view of the authorization registry used by health endpoints
type RegistryStatus interface {
	Ready() bool
	Stats() service.RegistryStats
}

// PingCounter counts health probe hits by path
type PingCounter interface {
	IncPing(pathname string)
}

// StatusHandlers serves health, about and status endpoints
type StatusHandlers struct {
	registry RegistryStatus
	pings    PingCounter
	version  string
}

// NewStatusHandlers creates new status handlers
func NewStatusHandlers(registry RegistryStatus, pings PingCounter, version string) *StatusHandlers {
	return &StatusHandlers{
		registry: registry,
		pings:    pings,
		version:  version,
	}
}

// Ping answers with the request path
func (h *StatusHandlers) Ping(c *gin.Context) {
	path := c.Request.URL.Path
	h.pings.IncPing(path)
	c.String(http.StatusOK, path)
}

// Ready is a ping that fails until the authorizations were loaded once
func (h *StatusHandlers) Ready(c *gin.Context) {
	if !h.registry.Ready() {
		c.String(http.StatusServiceUnavailable, "authorizations not loaded")
		return
	}
	h.Ping(c)
}

// About describes this server as a realm
func (h *StatusHandlers) About(c *gin.Context) {
	host := c.Request.Host
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.HasSuffix(host, "]") {
		host = host[:i]
	}

	c.JSON(http.StatusOK, gin.H{
		"acceptingUsers": true,
		"bff":            gin.H{"healthy": false, "publicUrl": host + "/bff"},
		"comms": gin.H{
			"healthy":      true,
			"protocol":     "v3",
			"fixedAdapter": "offline:offline",
		},
		"configurations": gin.H{
			"networkId":       0,
			"globalScenesUrn": []string{},
			"scenesUrn":       []string{},
			"realmName":       "LinkerServer",
		},
		"content": gin.H{"healthy": true, "publicUrl": host + "/content"},
		"lambdas": gin.H{"healthy": true, "publicUrl": host + "/lambdas"},
		"healthy": true,
	})
}

// Status reports the state of the authorization registry
func (h *StatusHandlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":        h.version,
		"ready":          h.registry.Ready(),
		"authorizations": h.registry.Stats(),
	})
}
