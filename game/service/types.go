package service

import (
	"time"

	"github.com/wricardo/mcp-training/apocalypse/game/engine"
	"github.com/wricardo/mcp-training/apocalypse/game/grid"
)

// Event types reported in results
const (
	EventTick        = "tick"
	EventCaught      = "caught"
	EventStable      = "stable"
	EventReset       = "reset"
	EventClear       = "clear"
	EventEntityAdded = "entity_added"
)

// Stop reason codes for bulk runs
const (
	StopReasonStable = "stable"
	StopReasonLimit  = "limit"
)

// EntityKindObstacle is accepted by AddEntity next to the two populations
const EntityKindObstacle = "obstacle"

// SessionInfo provides information about a simulation session
type SessionInfo struct {
	ID              string                  `json:"id"`
	ScenarioID      string                  `json:"scenario_id"`
	CreatedAt       time.Time               `json:"created_at"`
	LastAccessedAt  time.Time               `json:"last_accessed_at"`
	SimulationState *engine.SimulationState `json:"simulation_state"`
	Scenario        *engine.ScenarioConfig  `json:"scenario"`
}

// TickResult contains the result of a single tick
type TickResult struct {
	Tick            engine.TickHistoryEntry `json:"tick"`
	Stable          bool                    `json:"stable"`
	SimulationState *engine.SimulationState `json:"simulation_state"`
	Message         string                  `json:"message"`
	Events          []SimulationEvent       `json:"events,omitempty"`
}

// RunResult contains the result of a bulk run
type RunResult struct {
	// Summary
	TicksExecuted  int  `json:"ticks_executed"`
	RequestedTicks int  `json:"requested_ticks"`
	Truncated      bool `json:"truncated,omitempty"`
	Limit          int  `json:"limit,omitempty"`

	// Why the run ended before the requested count: stable|limit
	StopReasonCode string `json:"stop_reason_code,omitempty"`
	StoppedOnTick  int    `json:"stopped_on_tick,omitempty"`

	// Totals over the executed ticks
	HumansMoved  int `json:"humans_moved"`
	ZombiesMoved int `json:"zombies_moved"`

	// Start/end snapshot
	StartHumans  []grid.Cell `json:"start_humans"`
	EndHumans    []grid.Cell `json:"end_humans"`
	StartZombies []grid.Cell `json:"start_zombies"`
	EndZombies   []grid.Cell `json:"end_zombies"`

	// Per-tick trace, only for this call
	Ticks []engine.TickHistoryEntry `json:"ticks,omitempty"`

	Stable          bool                    `json:"stable"`
	Message         string                  `json:"message,omitempty"`
	SimulationState *engine.SimulationState `json:"simulation_state"`
	Events          []SimulationEvent       `json:"events"`
}

// SimulationEvent represents something notable that happened in a session
type SimulationEvent struct {
	Type      string      `json:"type"` // tick, caught, stable, reset, clear, entity_added
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Tick      int         `json:"tick,omitempty"`
	Cells     []grid.Cell `json:"cells,omitempty"`
}

// HistoryOptions configures tick history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated tick history
type HistoryResponse struct {
	Ticks       []engine.TickHistoryEntry `json:"ticks"`
	TotalTicks  int                       `json:"total_ticks"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ScenarioInfo provides information about a scenario file
type ScenarioInfo struct {
	Filename     string           `json:"filename"`
	ScenarioID   string           `json:"scenario_id"` // The identifier to use for session creation
	Name         string           `json:"name"`        // Display name
	Description  string           `json:"description"`
	Height       int              `json:"height"`
	Width        int              `json:"width"`
	NumHumans    int              `json:"num_humans"`
	NumZombies   int              `json:"num_zombies"`
	NumObstacles int              `json:"num_obstacles"`
	TickOrder    engine.TickOrder `json:"tick_order"`
	MaxTicks     int              `json:"max_ticks,omitempty"`
}

// NewScenarioInfo summarizes a scenario loaded from filename
func NewScenarioInfo(filename, id string, scenario *engine.ScenarioConfig) *ScenarioInfo {
	obstacles, humans, zombies := scenario.Entities()
	return &ScenarioInfo{
		Filename:     filename,
		ScenarioID:   id,
		Name:         scenario.Name,
		Description:  scenario.Description,
		Height:       scenario.Height,
		Width:        scenario.Width,
		NumHumans:    len(humans),
		NumZombies:   len(zombies),
		NumObstacles: len(obstacles),
		TickOrder:    scenario.TickOrder,
		MaxTicks:     scenario.MaxTicks,
	}
}
