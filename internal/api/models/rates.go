package models

// CostEstimate is the response for a single trip cost estimate.
type CostEstimate struct {
	Mode           string  `json:"mode"`
	DistanceMeters float64 `json:"distanceMeters"`
	DistanceText   string  `json:"distanceText"`
	RatePerKm      float64 `json:"ratePerKm"`
	Cost           int64   `json:"cost"`
	Currency       string  `json:"currency"`
}

// Rate is one transport mode's per-kilometer price.
type Rate struct {
	Mode      string     `json:"mode"`
	RatePerKm float64    `json:"ratePerKm"`
	Currency  string     `json:"currency"`
	Source    string     `json:"source"` // "stored" or "default"
	UpdatedAt *Timestamp `json:"updatedAt,omitempty"`
}

// RatesResponse lists the effective rates.
type RatesResponse struct {
	Currency string `json:"currency"`
	Rates    []Rate `json:"rates"`
}

// RateInput is one entry of a rates update.
type RateInput struct {
	Mode      string   `json:"mode"`
	RatePerKm *float64 `json:"ratePerKm"`
	Currency  string   `json:"currency,omitempty"`
}

// RatesUpdateRequest is the request body for PUT /v1/admin/rates.
type RatesUpdateRequest struct {
	Rates []RateInput `json:"rates"`
}

// CacheInvalidateResponse reports how many cache entries were dropped.
type CacheInvalidateResponse struct {
	Removed int `json:"removed"`
}
