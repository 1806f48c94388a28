package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/linker/adapters/metrics"
	"github.com/layer-3/linker/core"
	"github.com/layer-3/linker/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDeployer struct {
	got      core.EntityUploadRequest
	response []byte
	err      error
}

func (d *fakeDeployer) Deploy(ctx context.Context, req core.EntityUploadRequest) ([]byte, error) {
	d.got = req
	return d.response, d.err
}

type fakeRegistry struct {
	ready bool
}

func (r fakeRegistry) Ready() bool { return r.ready }

func (r fakeRegistry) Stats() service.RegistryStats {
	return service.RegistryStats{Addresses: 2, Environment: "stg", LastRefresh: time.Unix(1700000000, 0).UTC()}
}

type fakeContent struct {
	status  int
	headers http.Header
	body    string
	err     error
	query   string
}

func (f *fakeContent) DeployEntity(ctx context.Context, body io.Reader, contentType string) ([]byte, error) {
	return nil, errors.New("not used")
}

func (f *fakeContent) AvailableContent(ctx context.Context, rawQuery string) (*http.Response, error) {
	f.query = rawQuery
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Header:     f.headers,
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

type routerFixture struct {
	router   *gin.Engine
	deployer *fakeDeployer
	content  *fakeContent
	metrics  *metrics.Metrics
}

func newRouterFixture(ready bool) *routerFixture {
	f := &routerFixture{
		deployer: &fakeDeployer{},
		content:  &fakeContent{},
		metrics:  metrics.New(),
	}
	f.router = SetupRouter(RouterConfig{
		Entities: f.deployer,
		Content:  f.content,
		Registry: fakeRegistry{ready: ready},
		Metrics:  f.metrics,
		Logger:   zap.NewNop(),
		Version:  "test",
	})
	return f
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func multipartRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for name, content := range files {
		part, err := writer.CreateFormFile(name, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/content/entities", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestDeployParsesMultipart(t *testing.T) {
	f := newRouterFixture(true)
	f.deployer.response = []byte(`{"creationTimestamp":1}`)

	w := f.do(multipartRequest(t,
		map[string]string{"entityId": "QmEntity", "authChain[0][type]": "SIGNER"},
		map[string]string{"QmEntity": `{"pointers":["0,0"]}`, "QmAsset": "asset"},
	))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"creationTimestamp":1}`, w.Body.String())
	assert.Equal(t, "QmEntity", f.deployer.got.Fields["entityId"])
	assert.Equal(t, "SIGNER", f.deployer.got.Fields["authChain[0][type]"])
	assert.Equal(t, `{"pointers":["0,0"]}`, string(f.deployer.got.Files["QmEntity"]))
	assert.Equal(t, "asset", string(f.deployer.got.Files["QmAsset"]))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestDeployErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "forbidden",
			err:    core.Forbidden("Missing access for 1 parcels:\n5,5"),
			status: http.StatusForbidden,
			body:   `{"error":"Forbidden","message":"Missing access for 1 parcels:\n5,5"}`,
		},
		{
			name:   "invalid request",
			err:    core.InvalidRequest("Missing entityId."),
			status: http.StatusBadRequest,
			body:   `{"error":"Bad request","message":"Missing entityId."}`,
		},
		{
			name:   "upload failure",
			err:    &core.UploadError{Status: 400, Message: "Invalid scene"},
			status: http.StatusInternalServerError,
			body:   `{"error":"Internal server error","message":"Invalid scene"}`,
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			body:   `{"error":"Internal server error","message":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(true)
			f.deployer.err = tt.err

			w := f.do(multipartRequest(t, map[string]string{"entityId": "QmEntity"}, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestDeployWithoutMultipartBody(t *testing.T) {
	f := newRouterFixture(true)
	f.deployer.err = core.Forbidden("No auth chain provided.")

	req := httptest.NewRequest(http.MethodPost, "/content/entities", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, f.deployer.got.Fields)
	assert.Empty(t, f.deployer.got.Files)
}

func TestDeployRejectsBrokenMultipart(t *testing.T) {
	f := newRouterFixture(true)

	req := httptest.NewRequest(http.MethodPost, "/content/entities", strings.NewReader("--x\r\ngarbage"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w := f.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, f.deployer.got.Fields)
}

func TestPingAndHealth(t *testing.T) {
	f := newRouterFixture(true)

	for _, path := range []string{"/ping", "/health/ready", "/health/startup", "/health/live"} {
		w := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, path, w.Body.String())
	}

	w := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `linker_ping_counter{pathname="/health/live"} 1`)
}

func TestReadyBeforeFirstRefresh(t *testing.T) {
	f := newRouterFixture(false)

	w := f.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAbout(t *testing.T) {
	f := newRouterFixture(true)

	req := httptest.NewRequest(http.MethodGet, "/about", nil)
	req.Host = "linker.example.org:3000"
	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Content struct {
			PublicURL string `json:"publicUrl"`
		} `json:"content"`
		Configurations struct {
			RealmName string `json:"realmName"`
		} `json:"configurations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "linker.example.org/content", body.Content.PublicURL)
	assert.Equal(t, "LinkerServer", body.Configurations.RealmName)
}

func TestStatus(t *testing.T) {
	f := newRouterFixture(true)

	w := f.do(httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"version":"test",
		"ready":true,
		"authorizations":{"addresses":2,"lastRefresh":"2023-11-14T22:13:20Z","environment":"stg"}
	}`, w.Body.String())
}

func TestAvailableContentProxy(t *testing.T) {
	f := newRouterFixture(true)
	f.content.status = http.StatusOK
	f.content.body = `[{"cid":"a","available":true}]`
	f.content.headers = http.Header{
		"Content-Type":                []string{"application/json"},
		"Access-Control-Allow-Origin": []string{"*"},
		"X-Internal":                  []string{"secret"},
	}

	w := f.do(httptest.NewRequest(http.MethodGet, "/content/available-content?cid=a&cid=b", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, f.content.body, w.Body.String())
	assert.Equal(t, "cid=a&cid=b", f.content.query)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("X-Internal"))
}

func TestAvailableContentFailure(t *testing.T) {
	f := newRouterFixture(true)
	f.content.err = errors.New("dial tcp: refused")

	w := f.do(httptest.NewRequest(http.MethodGet, "/content/available-content", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch available content from Catalyst"}`, w.Body.String())
}
