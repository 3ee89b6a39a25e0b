package routing

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrInvalidRate indicates a per-kilometer rate that cannot be used for estimates.
var ErrInvalidRate = errors.New("invalid transport rate")

// TransportMode selects which per-kilometer rate applies to a trip.
type TransportMode string

// Known transport modes.
const (
	ModeCar       TransportMode = "car"
	ModeBike      TransportMode = "bike"
	ModeTaxi      TransportMode = "taxi"
	ModeMotorbike TransportMode = "motorbike"
)

// KnownModes returns the transport modes the app offers, in display order.
func KnownModes() []TransportMode {
	return []TransportMode{ModeCar, ModeMotorbike, ModeBike, ModeTaxi}
}

// ParseTransportMode normalizes a caller-supplied mode tag.
// Unknown tags are returned as-is; they simply have no rate.
func ParseTransportMode(s string) TransportMode {
	return TransportMode(strings.ToLower(strings.TrimSpace(s)))
}

// IsKnown reports whether the mode is one of KnownModes.
func (m TransportMode) IsKnown() bool {
	switch m {
	case ModeCar, ModeBike, ModeTaxi, ModeMotorbike:
		return true
	default:
		return false
	}
}

// RateTable maps transport modes to a cost per kilometer. It is immutable:
// constructors copy their input and modifiers return a new table.
type RateTable struct {
	rates map[TransportMode]float64
}

// NewRateTable builds a RateTable from the given rates.
func NewRateTable(rates map[TransportMode]float64) (RateTable, error) {
	copied := make(map[TransportMode]float64, len(rates))
	for mode, rate := range rates {
		if err := validateRate(mode, rate); err != nil {
			return RateTable{}, err
		}
		copied[mode] = rate
	}
	return RateTable{rates: copied}, nil
}

// DefaultRateTable returns the built-in rates in VND per kilometer.
func DefaultRateTable() RateTable {
	return RateTable{rates: map[TransportMode]float64{
		ModeCar:       3000,
		ModeMotorbike: 2000,
		ModeBike:      2000,
		ModeTaxi:      12000,
	}}
}

// Rate returns the per-kilometer rate for mode, or 0 when the mode has no rate.
func (t RateTable) Rate(mode TransportMode) float64 {
	return t.rates[mode]
}

// Has reports whether the table holds a rate for mode.
func (t RateTable) Has(mode TransportMode) bool {
	_, ok := t.rates[mode]
	return ok
}

// Len returns the number of modes with a rate.
func (t RateTable) Len() int {
	return len(t.rates)
}

// Modes returns the modes in the table, sorted by name.
func (t RateTable) Modes() []TransportMode {
	modes := make([]TransportMode, 0, len(t.rates))
	for mode := range t.rates {
		modes = append(modes, mode)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// Rates returns a copy of the underlying rates.
func (t RateTable) Rates() map[TransportMode]float64 {
	copied := make(map[TransportMode]float64, len(t.rates))
	for mode, rate := range t.rates {
		copied[mode] = rate
	}
	return copied
}

// WithRate returns a copy of the table with mode set to rate.
func (t RateTable) WithRate(mode TransportMode, rate float64) (RateTable, error) {
	if err := validateRate(mode, rate); err != nil {
		return RateTable{}, err
	}
	copied := t.Rates()
	copied[mode] = rate
	return RateTable{rates: copied}, nil
}

// Merge returns a copy of the table overlaid with the rates of other.
func (t RateTable) Merge(other RateTable) RateTable {
	merged := t.Rates()
	for mode, rate := range other.rates {
		merged[mode] = rate
	}
	return RateTable{rates: merged}
}

func validateRate(mode TransportMode, rate float64) error {
	if mode == "" {
		return fmt.Errorf("%w: empty transport mode", ErrInvalidRate)
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return fmt.Errorf("%w: %s rate %v must be a non-negative number", ErrInvalidRate, mode, rate)
	}
	return nil
}

// EstimateCost returns round((distanceMeters / 1000) * rate[mode]) with
// half-up rounding. Modes without a rate cost 0, as do non-positive distances.
// Costs beyond the int64 range saturate at math.MaxInt64.
func EstimateCost(distanceMeters float64, mode TransportMode, table RateTable) int64 {
	if !(distanceMeters > 0) {
		return 0
	}
	cost := math.Floor(distanceMeters/1000*table.Rate(mode) + 0.5)
	if cost >= math.MaxInt64 {
		return math.MaxInt64
	}
	if !(cost > 0) {
		return 0
	}
	return int64(cost)
}

// EstimateCosts returns the estimate for every mode in the table.
func EstimateCosts(distanceMeters float64, table RateTable) map[TransportMode]int64 {
	costs := make(map[TransportMode]int64, table.Len())
	for mode := range table.rates {
		costs[mode] = EstimateCost(distanceMeters, mode, table)
	}
	return costs
}
