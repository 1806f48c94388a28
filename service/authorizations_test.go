package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var registryNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRegistry(t *testing.T, env, grants string, opts ...RegistryOption) (*AuthorizationRegistry, *fakeGrants) {
	t.Helper()
	source := &fakeGrants{}
	source.set(t, grants)
	opts = append([]RegistryOption{WithClock(func() time.Time { return registryNow })}, opts...)
	r := NewAuthorizationRegistry(source, env, zap.NewNop(), opts...)
	require.NoError(t, r.Refresh(context.Background()))
	return r, source
}

func TestCheckAuthorization(t *testing.T) {
	r, _ := newRegistry(t, "prd", `[
		{"name":"a","addresses":["0xAbC"],"plots":["1,1","1,2"]},
		{"name":"b","addresses":["0xabc","0xDEF"],"plots":["2,2"]},
		{"name":"empty","addresses":["0x123"],"plots":[]}
	]`)

	check := r.CheckAuthorization("0xABC")
	assert.True(t, check.Authorized)
	assert.Equal(t, []string{"1,1", "1,2", "2,2"}, check.Parcels)

	check = r.CheckAuthorization("0xdef")
	assert.True(t, check.Authorized)
	assert.Equal(t, []string{"2,2"}, check.Parcels)

	// present with no parcels is distinct from absent
	check = r.CheckAuthorization("0x123")
	assert.True(t, check.Authorized)
	assert.NotNil(t, check.Parcels)
	assert.Empty(t, check.Parcels)

	check = r.CheckAuthorization("0x999")
	assert.False(t, check.Authorized)
	assert.Nil(t, check.Parcels)
}

func TestCheckAuthorizationReturnsCopy(t *testing.T) {
	r, _ := newRegistry(t, "prd", `[{"addresses":["0xabc"],"plots":["1,1"]}]`)

	check := r.CheckAuthorization("0xabc")
	check.Parcels[0] = "9,9"

	assert.Equal(t, []string{"1,1"}, r.CheckAuthorization("0xabc").Parcels)
}

func TestInvalidPlotsAreDropped(t *testing.T) {
	r, _ := newRegistry(t, "prd", `[{"addresses":["0xabc"],"plots":[
		"0,0","-200,200","201,0","0,-201","a,b","1","1,2,3"," 1,1","1.5,2",""
	]}]`)

	assert.Equal(t, []string{"0,0", "-200,200"}, r.CheckAuthorization("0xabc").Parcels)
}

func TestGrantActivation(t *testing.T) {
	past := registryNow.Add(-24 * time.Hour).Format(time.RFC3339)
	future := registryNow.Add(24 * time.Hour).Format(time.RFC3339)
	grants := fmt.Sprintf(`[
		{"name":"started","addresses":["0x01"],"plots":["1,1"],"startDate":%q},
		{"name":"not started","addresses":["0x02"],"plots":["1,1"],"startDate":%q},
		{"name":"ended","addresses":["0x03"],"plots":["1,1"],"endDate":%q},
		{"name":"not ended","addresses":["0x04"],"plots":["1,1"],"endDate":%q},
		{"name":"dev","addresses":["0x05"],"plots":["1,1"],"onlyDev":true},
		{"name":"plain date","addresses":["0x06"],"plots":["1,1"],"startDate":"2026-02-01","endDate":"2026-04-01"}
	]`, past, future, past, future)

	prd, _ := newRegistry(t, "prd", grants)
	stg, _ := newRegistry(t, "stg", grants)

	tests := []struct {
		address string
		prd     bool
		stg     bool
	}{
		{"0x01", true, true},
		{"0x02", false, false},
		{"0x03", false, false},
		{"0x04", true, true},
		{"0x05", false, true},
		{"0x06", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.prd, prd.CheckAuthorization(tt.address).Authorized)
			assert.Equal(t, tt.stg, stg.CheckAuthorization(tt.address).Authorized)
		})
	}
}

func TestParseGrantDate(t *testing.T) {
	want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for _, value := range []string{
		"2026-02-01T00:00:00Z",
		"2026-02-01T00:00:00.000Z",
		"2026-02-01T01:00:00+01:00",
		"2026-02-01T00:00:00+0000",
		"2026-02-01T00:00:00.000+0000",
		"2026-02-01T00:00Z",
		"2026-01-31T23:00-01:00",
		"2026-02-01T00:00",
		"2026-02-01T00:00:00",
		"2026-02-01",
	} {
		t.Run(value, func(t *testing.T) {
			parsed, err := parseGrantDate(value)
			require.NoError(t, err)
			require.NotNil(t, parsed)
			assert.True(t, want.Equal(*parsed), "got %s", parsed)
		})
	}

	parsed, err := parseGrantDate("  ")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	_, err = parseGrantDate("01/02/2026")
	assert.Error(t, err)
}

func TestCheckParcelAccess(t *testing.T) {
	r, _ := newRegistry(t, "prd", `[{"addresses":["0xAbC"],"plots":["1,1","1,2"]}]`)

	access := r.CheckParcelAccess("0xabc", []string{"1,1", "1,2"})
	assert.True(t, access.HasAccess)
	assert.Empty(t, access.MissingParcels)

	access = r.CheckParcelAccess("0xABC", []string{"3,3", "1,1", "2,2"})
	assert.False(t, access.HasAccess)
	assert.Equal(t, []string{"3,3", "2,2"}, access.MissingParcels)

	access = r.CheckParcelAccess("0xabc", nil)
	assert.True(t, access.HasAccess)
	assert.Empty(t, access.MissingParcels)

	access = r.CheckParcelAccess("0xunknown", []string{"1,1", "5,5"})
	assert.False(t, access.HasAccess)
	assert.Equal(t, []string{"1,1", "5,5"}, access.MissingParcels)
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	r, source := newRegistry(t, "prd", `[{"addresses":["0xabc"],"plots":["1,1"]}]`)

	source.fail(errors.New("network down"))
	err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "network down")

	assert.True(t, r.CheckAuthorization("0xabc").Authorized)
	assert.Equal(t, 1, r.Stats().Addresses)

	source.set(t, `[{"addresses":["0xdef"],"plots":["2,2"]}]`)
	require.NoError(t, r.Refresh(context.Background()))
	assert.False(t, r.CheckAuthorization("0xabc").Authorized)
	assert.True(t, r.CheckAuthorization("0xdef").Authorized)
}

func TestRefreshSkipsMalformedGrants(t *testing.T) {
	r, _ := newRegistry(t, "prd", `[
		{"name":"no addresses","plots":["1,1"]},
		{"name":"no plots","addresses":["0x01"]},
		{"name":"bad date","addresses":["0x02"],"plots":["1,1"],"startDate":"yesterday"},
		{"name":"wrong type","addresses":"0x03","plots":["1,1"]},
		42,
		{"name":"good","addresses":["0x04"],"plots":["1,1"]}
	]`)

	assert.Equal(t, 1, r.Stats().Addresses)
	assert.True(t, r.CheckAuthorization("0x04").Authorized)
	assert.False(t, r.CheckAuthorization("0x01").Authorized)
	assert.False(t, r.CheckAuthorization("0x02").Authorized)
}

func TestReady(t *testing.T) {
	source := &fakeGrants{}
	source.fail(errors.New("unreachable"))
	r := NewAuthorizationRegistry(source, "prd", zap.NewNop())

	assert.False(t, r.Ready())
	assert.False(t, r.CheckAuthorization("0xabc").Authorized)

	assert.Error(t, r.Refresh(context.Background()))
	assert.True(t, r.Ready())
}

type recordingObserver struct {
	results []bool
	last    int
}

func (o *recordingObserver) ObserveRefresh(success bool, addresses int) {
	o.results = append(o.results, success)
	o.last = addresses
}

func TestRefreshNotifiesObserverAndPublisher(t *testing.T) {
	observer := &recordingObserver{}
	publisher := &fakePublisher{}
	r, source := newRegistry(t, "prd", `[{"addresses":["0x01","0x02"],"plots":["1,1"]}]`,
		WithRefreshObserver(observer), WithRefreshPublisher(publisher))

	source.fail(errors.New("boom"))
	_ = r.Refresh(context.Background())

	assert.Equal(t, []bool{true, false}, observer.results)
	assert.Equal(t, 2, observer.last)
	assert.Equal(t, []int{2}, publisher.refreshes)

	stats := r.Stats()
	assert.Equal(t, "prd", stats.Environment)
	assert.True(t, registryNow.Equal(stats.LastRefresh))
}

func TestConcurrentReadsDuringRefresh(t *testing.T) {
	r, source := newRegistry(t, "prd", `[{"addresses":["0xabc"],"plots":["1,1"]}]`)

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				// every read sees one whole snapshot, never a partial one
				check := r.CheckAuthorization("0xabc")
				if check.Authorized {
					assert.Equal(t, []string{"1,1"}, check.Parcels)
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			source.set(t, `[]`)
		} else {
			source.set(t, `[{"addresses":["0xabc"],"plots":["1,1"]}]`)
		}
		require.NoError(t, r.Refresh(context.Background()))
	}

	cancel()
	wg.Wait()
}
