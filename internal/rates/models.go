// Package rates manages the per-kilometer transport rates used for trip cost
// estimates. Rates are edited from the admin dashboard and served to the
// routing service as immutable rate table snapshots.
package rates

import (
	"time"

	"github.com/foodiemap/foodiemap/internal/routing"
)

// DefaultCurrency is the ISO 4217 code all built-in rates are expressed in.
const DefaultCurrency = "VND"

// Rate is a stored per-kilometer price for one transport mode.
type Rate struct {
	Mode      routing.TransportMode `json:"mode"`
	RatePerKm float64               `json:"ratePerKm"`
	Currency  string                `json:"currency"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// DefaultRates returns the built-in rates as Rate records.
func DefaultRates() []*Rate {
	table := routing.DefaultRateTable()
	out := make([]*Rate, 0, table.Len())
	for _, mode := range table.Modes() {
		out = append(out, &Rate{
			Mode:      mode,
			RatePerKm: table.Rate(mode),
			Currency:  DefaultCurrency,
		})
	}
	return out
}
