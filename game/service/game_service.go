package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/mcp-training/apocalypse/game/engine"
)

var (
	ErrInvalidEntityKind = errors.New("entity type must be human, zombie or obstacle")
	ErrInvalidTickCount  = errors.New("tick count must be positive")

	// ErrScenarioNotFound is returned by ConfigManager implementations for unknown scenarios
	ErrScenarioNotFound = errors.New("configuration not found")
)

// SimulationService defines all simulation operations exposed to transports
type SimulationService interface {
	// Session Management
	CreateSession(ctx context.Context, scenarioName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Simulation Operations
	Tick(ctx context.Context, sessionID string, reset bool) (*TickResult, error)
	RunTicks(ctx context.Context, sessionID string, ticks int, reset bool) (*RunResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.SimulationState, error)
	Clear(ctx context.Context, sessionID string) (*engine.SimulationState, error)
	AddEntity(ctx context.Context, sessionID, kind string, row, col int) (*engine.SimulationState, error)

	// Simulation State
	GetSimulationState(ctx context.Context, sessionID string) (*engine.SimulationState, error)
	GetDistanceField(ctx context.Context, sessionID, entity string) (*engine.DistanceField, error)
	GetTickHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Scenarios
	ListScenarios(ctx context.Context) ([]*ScenarioInfo, error)
	LoadScenario(ctx context.Context, scenarioName string) (*engine.ScenarioConfig, error)
	SaveScenario(ctx context.Context, scenarioName string, scenario *engine.ScenarioConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, scenarioID string, scenario *engine.ScenarioConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, scenarioID string, scenario *engine.ScenarioConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles scenario loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.ScenarioConfig, error)
	ListConfigs() ([]*ScenarioInfo, error)
	GetDefault() *engine.ScenarioConfig
	SaveConfig(name string, scenario *engine.ScenarioConfig) error
}

// Session represents an active simulation session
type Session struct {
	ID             string
	ScenarioID     string
	Simulation     *engine.Simulation
	Scenario       *engine.ScenarioConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
