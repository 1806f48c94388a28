package grants

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/layer-3/linker/adapters/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetchGrants(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"addresses":["0xA"],"plots":["0,0"]}, {"broken": true}]`))
	}))
	defer server.Close()

	records, err := NewHTTPSource(server.URL, time.Second).FetchGrants(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.JSONEq(t, `{"addresses":["0xA"],"plots":["0,0"]}`, string(records[0]))
}

func TestFetchGrantsFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non 200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusServiceUnavailable)
			},
		},
		{
			name: "not an array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"addresses":[]}`))
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[{`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewHTTPSource(server.URL, time.Second).FetchGrants(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestNewHTTPSourceDefaultURL(t *testing.T) {
	source := NewHTTPSource("", time.Second).(*HTTPSource)
	assert.Equal(t, DefaultURL, source.url)
}

type flakySource struct {
	records []json.RawMessage
	err     error
}

func (s *flakySource) FetchGrants(ctx context.Context) ([]json.RawMessage, error) {
	return s.records, s.err
}

func TestCachedSourceFallsBackToLastList(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	upstream := &flakySource{records: []json.RawMessage{json.RawMessage(`{"addresses":["0xA"],"plots":["0,0"]}`)}}
	source := NewCachedSource(upstream, store.NewRedisStore(client), time.Hour, zap.NewNop())

	records, err := source.FetchGrants(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.True(t, mr.Exists("linker:cache:authorizations:last"))

	upstream.records, upstream.err = nil, errors.New("upstream down")
	records, err = source.FetchGrants(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.JSONEq(t, `{"addresses":["0xA"],"plots":["0,0"]}`, string(records[0]))

	mr.FastForward(2 * time.Hour)
	_, err = source.FetchGrants(ctx)
	assert.ErrorContains(t, err, "upstream down")
}

func TestCachedSourceWithoutHistory(t *testing.T) {
	upstream := &flakySource{err: errors.New("upstream down")}
	source := NewCachedSource(upstream, store.NewMemoryStore(), 0, zap.NewNop())

	_, err := source.FetchGrants(context.Background())
	assert.ErrorContains(t, err, "upstream down")
}
