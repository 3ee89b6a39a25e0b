package models

// Health is the body of the liveness and readiness checks.
type Health struct {
	Status    HealthStatus `json:"status"`
	Time      Timestamp    `json:"time"`
	Version   string       `json:"version,omitempty"`
	BuildTime string       `json:"buildTime,omitempty"`

	// Checks maps a dependency name to "ok" or its failure reason.
	Checks map[string]string `json:"checks,omitempty"`
}

// SystemStatus is the admin view of every dependency.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Version    string            `json:"version"`
	Database   *DependencyStatus `json:"database,omitempty"`
	Providers  []ProviderStatus  `json:"providers"`
	RouteCache *RouteCacheStatus `json:"routeCache,omitempty"`
}

// DependencyStatus is the result of probing one backing service.
type DependencyStatus struct {
	Status    HealthStatus `json:"status"`
	LatencyMs int64        `json:"latencyMs"`
	Error     string       `json:"error,omitempty"`
}

// ProviderStatus mirrors resilience.ProviderHealth.
type ProviderStatus struct {
	Name                string       `json:"name"`
	Status              HealthStatus `json:"status"`
	CircuitState        string       `json:"circuitState"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	LastError           string       `json:"lastError,omitempty"`
}

type RouteCacheStatus struct {
	Provider     string `json:"provider"`
	TotalEntries int    `json:"totalEntries"`
	FreshEntries int    `json:"freshEntries"`
	StaleEntries int    `json:"staleEntries"`
}
