package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Repository provides persistence for scenarios and their projections.
type Repository struct {
	db *DB
}

// NewRepository creates a repository over an open database.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveScenario inserts a scenario and returns its generated id.
func (r *Repository) SaveScenario(ctx context.Context, s *Scenario) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scenarios (id, name, office, state, year, request_json) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Office, s.State, s.Year, s.RequestJSON,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save scenario: %w", err)
	}
	return s.ID, nil
}

// GetScenario fetches one scenario by id.
func (r *Repository) GetScenario(ctx context.Context, id string) (*Scenario, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, office, state, year, request_json, created_at FROM scenarios WHERE id = ?`, id)

	var s Scenario
	var state sql.NullString
	if err := row.Scan(&s.ID, &s.Name, &s.Office, &state, &s.Year, &s.RequestJSON, &s.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scenario: %w", err)
	}
	s.State = state.String
	return &s, nil
}

// ListScenarios returns scenarios newest first, capped at limit.
func (r *Repository) ListScenarios(ctx context.Context, limit int) ([]Scenario, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, office, state, year, request_json, created_at FROM scenarios ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []Scenario
	for rows.Next() {
		var s Scenario
		var state sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &s.Office, &state, &s.Year, &s.RequestJSON, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		s.State = state.String
		scenarios = append(scenarios, s)
	}
	return scenarios, rows.Err()
}

// SaveProjection stores a completed outcome against a scenario.
func (r *Repository) SaveProjection(ctx context.Context, p *SavedProjection) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projections (id, scenario_id, kind, result_json) VALUES (?, ?, ?, ?)`,
		p.ID, p.ScenarioID, p.Kind, p.ResultJSON,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save projection: %w", err)
	}
	return p.ID, nil
}

// ListProjections returns a scenario's saved projections, newest first.
func (r *Repository) ListProjections(ctx context.Context, scenarioID string) ([]SavedProjection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, scenario_id, kind, result_json, created_at FROM projections WHERE scenario_id = ? ORDER BY created_at DESC`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projections: %w", err)
	}
	defer rows.Close()

	var projections []SavedProjection
	for rows.Next() {
		var p SavedProjection
		if err := rows.Scan(&p.ID, &p.ScenarioID, &p.Kind, &p.ResultJSON, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan projection: %w", err)
		}
		projections = append(projections, p)
	}
	return projections, rows.Err()
}
