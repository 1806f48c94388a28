package core

import (
	"strconv"
	"strings"
	"time"
)

const (
	// PlotMin and PlotMax bound both axes of a valid plot coordinate
	PlotMin = -200
	PlotMax = 200

	// ProductionEnvironment is the environment in which onlyDev grants are inactive
	ProductionEnvironment = "prd"
)

// ContactInfo identifies who requested a grant
type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Grant is a time-windowed record authorizing addresses to publish to plots
type Grant struct {
	Name        string
	Description string
	ContactInfo ContactInfo
	Addresses   []string
	Plots       []string
	StartDate   *time.Time
	EndDate     *time.Time
	OnlyDev     bool
}

// ActiveAt reports whether the grant applies at now in the given environment
func (g Grant) ActiveAt(now time.Time, environment string) bool {
	if g.StartDate != nil && g.StartDate.After(now) {
		return false
	}
	if g.EndDate != nil && g.EndDate.Before(now) {
		return false
	}
	if g.OnlyDev && environment == ProductionEnvironment {
		return false
	}
	return true
}

// ValidPlot reports whether plot is an "x,y" pair of integers within [PlotMin, PlotMax]
func ValidPlot(plot string) bool {
	parts := strings.Split(plot, ",")
	if len(parts) != 2 {
		return false
	}
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < PlotMin || n > PlotMax {
			return false
		}
	}
	return true
}

// AuthorizationSnapshot is an immutable view of address -> authorized parcels.
// It is built once and never mutated; refreshes replace it wholesale.
type AuthorizationSnapshot struct {
	entries map[string]*parcelSet
	builtAt time.Time
}

type parcelSet struct {
	list  []string
	index map[string]struct{}
}

// EmptySnapshot returns a snapshot with no authorized addresses
func EmptySnapshot() *AuthorizationSnapshot {
	return &AuthorizationSnapshot{entries: map[string]*parcelSet{}}
}

// BuildSnapshot flattens the grants active at now into a snapshot
func BuildSnapshot(grants []Grant, environment string, now time.Time) *AuthorizationSnapshot {
	snapshot := &AuthorizationSnapshot{
		entries: make(map[string]*parcelSet),
		builtAt: now,
	}

	for _, grant := range grants {
		if !grant.ActiveAt(now, environment) {
			continue
		}
		for _, address := range grant.Addresses {
			key := strings.ToLower(address)
			set, ok := snapshot.entries[key]
			if !ok {
				set = &parcelSet{index: map[string]struct{}{}}
				snapshot.entries[key] = set
			}
			for _, plot := range grant.Plots {
				if ValidPlot(plot) {
					set.list = append(set.list, plot)
					set.index[plot] = struct{}{}
				}
			}
		}
	}

	return snapshot
}

// Parcels returns the parcel list for address and whether the address is present
func (s *AuthorizationSnapshot) Parcels(address string) ([]string, bool) {
	set, ok := s.entries[strings.ToLower(address)]
	if !ok {
		return nil, false
	}
	out := make([]string, len(set.list))
	copy(out, set.list)
	return out, true
}

// Missing returns the pointers address may not publish to, in input order
func (s *AuthorizationSnapshot) Missing(address string, pointers []string) []string {
	set, ok := s.entries[strings.ToLower(address)]
	missing := make([]string, 0, len(pointers))
	for _, pointer := range pointers {
		if !ok {
			missing = append(missing, pointer)
			continue
		}
		if _, found := set.index[pointer]; !found {
			missing = append(missing, pointer)
		}
	}
	return missing
}

// Len returns the number of authorized addresses
func (s *AuthorizationSnapshot) Len() int {
	return len(s.entries)
}

// BuiltAt returns when the snapshot was built
func (s *AuthorizationSnapshot) BuiltAt() time.Time {
	return s.builtAt
}

// AuthorizationCheck is the answer to "is this address authorized at all"
type AuthorizationCheck struct {
	Authorized bool     `json:"authorized"`
	Parcels    []string `json:"parcels,omitempty"`
}

// ParcelAccess is the answer to "may this address publish to these pointers"
type ParcelAccess struct {
	HasAccess      bool     `json:"hasAccess"`
	MissingParcels []string `json:"missingParcels"`
}
