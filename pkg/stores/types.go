package stores

import "time"

// RunRecord summarizes one finished search run.
type RunRecord struct {
	ID               string    `json:"id"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	JourneyCount     int       `json:"journey_count"`
	RouteCount       int       `json:"route_count"`
	CalculationCount int       `json:"calculation_count"`
}

// CalculationRecord is one priced itinerary of a run, flattened for
// querying plus the full calculation as a JSON blob.
type CalculationRecord struct {
	RunID                string  `json:"run_id"`
	GroupLabel           string  `json:"group_label"`
	Price                float64 `json:"price"`
	Rate                 float64 `json:"rate"`
	TravelDays           float64 `json:"travel_days"`
	TotalFlightsDuration int     `json:"total_flights_duration"`
	StartTimestamp       int64   `json:"start_timestamp"`
	Payload              string  `json:"payload"`
}
