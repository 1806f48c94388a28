package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/layer-3/linker/core"
	"github.com/layer-3/linker/ports"
	"go.uber.org/zap"
)

var errMissingGrantField = errors.New("grant is missing addresses or plots")

// RefreshObserver is notified about the result of every registry refresh
type RefreshObserver interface {
	ObserveRefresh(success bool, addresses int)
}

// AuthorizationRegistry answers authorization queries against a periodically
// replaced snapshot of the grants list. Readers never block on a refresh.
type AuthorizationRegistry struct {
	source      ports.GrantsSource
	environment string
	logger      *zap.Logger
	publisher   ports.EventPublisher
	observer    RefreshObserver
	now         func() time.Time

	snapshot  atomic.Pointer[core.AuthorizationSnapshot]
	ready     atomic.Bool
	refreshed atomic.Int64
}

// RegistryOption configures an AuthorizationRegistry
type RegistryOption func(*AuthorizationRegistry)

// WithClock overrides the time source used to evaluate grant windows
func WithClock(now func() time.Time) RegistryOption {
	return func(r *AuthorizationRegistry) { r.now = now }
}

// WithRefreshPublisher publishes an event after every successful refresh
func WithRefreshPublisher(publisher ports.EventPublisher) RegistryOption {
	return func(r *AuthorizationRegistry) { r.publisher = publisher }
}

// WithRefreshObserver reports refresh results, typically to metrics
func WithRefreshObserver(observer RefreshObserver) RegistryOption {
	return func(r *AuthorizationRegistry) { r.observer = observer }
}

// NewAuthorizationRegistry creates an empty registry. Call Refresh before serving.
func NewAuthorizationRegistry(source ports.GrantsSource, environment string, logger *zap.Logger, opts ...RegistryOption) *AuthorizationRegistry {
	r := &AuthorizationRegistry{
		source:      source,
		environment: environment,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.snapshot.Store(core.EmptySnapshot())
	return r
}

// Refresh fetches the grants and swaps in a freshly built snapshot.
// On failure the previous snapshot is kept and the error is returned.
func (r *AuthorizationRegistry) Refresh(ctx context.Context) error {
	defer r.ready.Store(true)

	r.logger.Debug("Updating authorizations data - Start")
	raw, err := r.source.FetchGrants(ctx)
	if err != nil {
		r.logger.Error("Updating authorizations data error", zap.Error(err))
		r.observe(false)
		return fmt.Errorf("failed to fetch grants: %w", err)
	}
	r.logger.Debug("Updating authorizations data - Fetched", zap.Int("records", len(raw)))

	grants := make([]core.Grant, 0, len(raw))
	for i, record := range raw {
		grant, err := decodeGrant(record)
		if err != nil {
			r.logger.Warn("Skipping malformed grant", zap.Int("index", i), zap.Error(err))
			continue
		}
		grants = append(grants, grant)
	}

	now := r.now()
	next := core.BuildSnapshot(grants, r.environment, now)
	r.snapshot.Store(next)
	r.refreshed.Store(now.UnixMilli())
	r.observe(true)

	r.logger.Info("Updating authorizations data - Complete", zap.Int("addresses", next.Len()))

	if r.publisher != nil {
		if err := r.publisher.PublishAuthorizationsRefreshed(ctx, next.Len()); err != nil {
			r.logger.Warn("Failed to publish authorizations refreshed event", zap.Error(err))
		}
	}

	return nil
}

func (r *AuthorizationRegistry) observe(success bool) {
	if r.observer != nil {
		r.observer.ObserveRefresh(success, r.snapshot.Load().Len())
	}
}

// CheckAuthorization reports whether address appears in any active grant
func (r *AuthorizationRegistry) CheckAuthorization(address string) core.AuthorizationCheck {
	parcels, ok := r.snapshot.Load().Parcels(address)
	if !ok {
		return core.AuthorizationCheck{Authorized: false}
	}
	if parcels == nil {
		parcels = []string{}
	}
	return core.AuthorizationCheck{Authorized: true, Parcels: parcels}
}

// CheckParcelAccess reports which of pointers address may not publish to
func (r *AuthorizationRegistry) CheckParcelAccess(address string, pointers []string) core.ParcelAccess {
	missing := r.snapshot.Load().Missing(address, pointers)
	return core.ParcelAccess{
		HasAccess:      len(missing) == 0,
		MissingParcels: missing,
	}
}

// Ready reports whether the initial refresh has been attempted
func (r *AuthorizationRegistry) Ready() bool {
	return r.ready.Load()
}

// RegistryStats describes the current snapshot
type RegistryStats struct {
	Addresses   int       `json:"addresses"`
	LastRefresh time.Time `json:"lastRefresh"`
	Environment string    `json:"environment"`
}

// Stats describes the current snapshot
func (r *AuthorizationRegistry) Stats() RegistryStats {
	stats := RegistryStats{
		Addresses:   r.snapshot.Load().Len(),
		Environment: r.environment,
	}
	if ms := r.refreshed.Load(); ms > 0 {
		stats.LastRefresh = time.UnixMilli(ms).UTC()
	}
	return stats
}

type grantRecord struct {
	Name        string           `json:"name"`
	Description string           `json:"desc"`
	ContactInfo core.ContactInfo `json:"contactInfo"`
	Addresses   []string         `json:"addresses"`
	Plots       []string         `json:"plots"`
	StartDate   string           `json:"startDate"`
	EndDate     string           `json:"endDate"`
	OnlyDev     bool             `json:"onlyDev"`
}

func decodeGrant(raw json.RawMessage) (core.Grant, error) {
	var record grantRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return core.Grant{}, fmt.Errorf("failed to decode grant: %w", err)
	}
	if record.Addresses == nil || record.Plots == nil {
		return core.Grant{}, errMissingGrantField
	}

	start, err := parseGrantDate(record.StartDate)
	if err != nil {
		return core.Grant{}, fmt.Errorf("invalid startDate: %w", err)
	}
	end, err := parseGrantDate(record.EndDate)
	if err != nil {
		return core.Grant{}, fmt.Errorf("invalid endDate: %w", err)
	}

	return core.Grant{
		Name:        record.Name,
		Description: record.Description,
		ContactInfo: record.ContactInfo,
		Addresses:   record.Addresses,
		Plots:       record.Plots,
		StartDate:   start,
		EndDate:     end,
		OnlyDev:     record.OnlyDev,
	}, nil
}

var grantDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseGrantDate accepts full ISO 8601 timestamps and plain dates. Empty means unset.
func parseGrantDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	var lastErr error
	for _, layout := range grantDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return &t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
