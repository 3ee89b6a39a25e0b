// Package worker provides background job processing for FoodieMap.
package worker

import (
	"time"

	"github.com/foodiemap/foodiemap/internal/routing"
)

// Trip is a popular origin/destination pair whose routes are kept warm.
type Trip struct {
	// Name is the human-readable label used in logs.
	Name string

	Origin      routing.Coordinate
	Destination routing.Coordinate
}

// WarmConfig holds configuration for the route cache warm-up job.
type WarmConfig struct {
	// Trips are the pairs to prefetch.
	// If empty, uses DefaultTrips.
	Trips []Trip

	// Modes are the transport modes fetched for every trip.
	// If empty, the provider's supported modes are used.
	Modes []routing.TransportMode

	// Alternatives requests alternative routes, matching what the app asks for.
	// Default: true
	Alternatives bool

	// Concurrency is the number of concurrent provider calls.
	// Default: 4
	Concurrency int

	// Timeout bounds each trip/mode fetch.
	// Default: 20 seconds
	Timeout time.Duration
}

// DefaultWarmConfig returns the default warm-up configuration.
func DefaultWarmConfig() WarmConfig {
	return WarmConfig{
		Trips:        DefaultTrips(),
		Alternatives: true,
		Concurrency:  4,
		Timeout:      20 * time.Second,
	}
}

// DefaultTrips returns frequently requested trips between busy food districts
// in Ho Chi Minh City and Hanoi.
func DefaultTrips() []Trip {
	benThanh := routing.Coordinate{Lat: 10.7726, Lon: 106.6980}
	buiVien := routing.Coordinate{Lat: 10.7675, Lon: 106.6932}
	choLon := routing.Coordinate{Lat: 10.7503, Lon: 106.6528}
	thaoDien := routing.Coordinate{Lat: 10.8030, Lon: 106.7324}
	hoanKiem := routing.Coordinate{Lat: 21.0285, Lon: 105.8542}
	taHien := routing.Coordinate{Lat: 21.0347, Lon: 105.8517}
	trucBach := routing.Coordinate{Lat: 21.0458, Lon: 105.8400}

	return []Trip{
		{Name: "Ben Thanh to Bui Vien", Origin: benThanh, Destination: buiVien},
		{Name: "Ben Thanh to Cho Lon", Origin: benThanh, Destination: choLon},
		{Name: "Bui Vien to Thao Dien", Origin: buiVien, Destination: thaoDien},
		{Name: "Hoan Kiem to Ta Hien", Origin: hoanKiem, Destination: taHien},
		{Name: "Hoan Kiem to Truc Bach", Origin: hoanKiem, Destination: trucBach},
	}
}

// TotalTasks returns the number of provider fetches a run performs
// when modesPerTrip modes are warmed for every trip.
func (c WarmConfig) TotalTasks(modesPerTrip int) int {
	return len(c.Trips) * modesPerTrip
}
