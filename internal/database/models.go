package database

import "time"

// Scenario is a saved simulation request an analyst can re-run.
type Scenario struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Office      string    `json:"office"`
	State       string    `json:"state,omitempty"`
	Year        int       `json:"year"`
	RequestJSON string    `json:"request"`
	CreatedAt   time.Time `json:"created_at"`
}

// SavedProjection is a completed outcome stored against its scenario.
type SavedProjection struct {
	ID         string    `json:"id"`
	ScenarioID string    `json:"scenario_id"`
	Kind       string    `json:"kind"`
	ResultJSON string    `json:"result"`
	CreatedAt  time.Time `json:"created_at"`
}
