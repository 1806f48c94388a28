package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/linker/internal/eth"
	"github.com/stretchr/testify/require"
)

type fakeGrants struct {
	mu      sync.Mutex
	records []json.RawMessage
	err     error
	calls   int
}

func (f *fakeGrants) FetchGrants(ctx context.Context) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeGrants) set(t *testing.T, raw string) {
	t.Helper()
	var records []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &records))
	f.mu.Lock()
	f.records, f.err = records, nil
	f.mu.Unlock()
}

func (f *fakeGrants) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *fakeMetrics) IncEntityUpload(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[status]++
}

func (m *fakeMetrics) count(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[status]
}

type fakePublisher struct {
	mu        sync.Mutex
	deployed  []string
	refreshes []int
	err       error
}

func (p *fakePublisher) PublishEntityDeployed(ctx context.Context, entityID, signer string, pointers []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deployed = append(p.deployed, entityID)
	return p.err
}

func (p *fakePublisher) PublishAuthorizationsRefreshed(ctx context.Context, addresses int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes = append(p.refreshes, addresses)
	return p.err
}

func newSigner(t *testing.T) *eth.KeySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return eth.NewSignerFromKey(key)
}

func sign(t *testing.T, s *eth.KeySigner, msg string) string {
	t.Helper()
	sig, err := s.SignMessage(msg)
	require.NoError(t, err)
	return sig
}
