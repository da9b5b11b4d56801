package engine

import (
	"fmt"
	"time"
)

// Engine provides the main interface for simulation operations
type Engine interface {
	// State
	GetState() *SimulationState
	Reset() *SimulationState
	IsStable() bool
	GetTick() int

	// Stepping
	Tick() (*TickHistoryEntry, error)
	BulkTick(ticks int) ([]TickHistoryEntry, error)

	// Editing
	AddHuman(row, col int) error
	AddZombie(row, col int) error
	AddObstacle(row, col int) error
	Clear() *SimulationState

	// Queries
	DistanceField(entity EntityType) (*DistanceField, error)
	GetScenario() *ScenarioConfig

	// History
	GetTickHistory() []TickHistoryEntry
	GetCurrentTicks() []TickHistoryEntry
	GetLastTick() *TickHistoryEntry
}

// Simulation drives an Apocalypse built from a scenario and records every tick
type Simulation struct {
	scenario *ScenarioConfig
	world    *Apocalypse

	message string
	stable  bool
	caught  int

	// history is cumulative and survives Reset; current holds the ticks since the last Reset
	history []TickHistoryEntry
	current []TickHistoryEntry
}

// NewSimulation creates a simulation from a scenario
func NewSimulation(scenario *ScenarioConfig) (*Simulation, error) {
	if scenario == nil {
		return nil, ErrNoScenarioProvided
	}
	scenario.Normalize()
	if err := ValidateScenarioConfig(scenario); err != nil {
		return nil, err
	}

	sim := &Simulation{scenario: scenario}
	if err := sim.build(); err != nil {
		return nil, err
	}
	return sim, nil
}

// NewSimulationWithDefaults creates a simulation from the built-in scenario
func NewSimulationWithDefaults() *Simulation {
	sim, err := NewSimulation(DefaultScenario())
	if err != nil {
		panic(fmt.Sprintf("default scenario is invalid: %v", err))
	}
	return sim
}

func (s *Simulation) build() error {
	obstacles, humans, zombies := s.scenario.Entities()
	world, err := NewApocalypse(s.scenario.Height, s.scenario.Width, obstacles, zombies, humans)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidScenario, s.scenario.Name, err)
	}
	s.world = world
	s.stable = false
	s.caught = len(world.Caught())
	s.message = s.scenario.Messages.Welcome
	return nil
}

// World exposes the underlying Apocalypse
func (s *Simulation) World() *Apocalypse {
	return s.world
}

// GetScenario returns the scenario the simulation was built from
func (s *Simulation) GetScenario() *ScenarioConfig {
	return s.scenario
}

// GetTick returns the number of ticks since the last reset
func (s *Simulation) GetTick() int {
	return len(s.current)
}

// IsStable reports whether the last tick moved nobody
func (s *Simulation) IsStable() bool {
	return s.stable
}

// GetState returns a snapshot of the simulation
func (s *Simulation) GetState() *SimulationState {
	caught := s.world.Caught()
	return &SimulationState{
		ScenarioName:      s.scenario.Name,
		Height:            s.world.Height(),
		Width:             s.world.Width(),
		Tick:              len(s.current),
		Obstacles:         s.world.Obstacles(),
		Humans:            s.world.HumanList(),
		Zombies:           s.world.ZombieList(),
		NumHumans:         s.world.NumHumans(),
		NumZombies:        s.world.NumZombies(),
		Caught:            caught,
		Stable:            s.stable,
		Message:           s.message,
		Layout:            RenderLayout(s.world),
		TotalTicks:        len(s.history),
		CurrentTicksCount: len(s.current),
	}
}

// Tick advances the simulation by one step and records it
func (s *Simulation) Tick() (*TickHistoryEntry, error) {
	report, err := s.world.Tick(s.scenario.TickOrder)
	if err != nil {
		return nil, err
	}

	entry := TickHistoryEntry{
		Tick:         len(s.current) + 1,
		HumansMoved:  report.HumansMoved,
		ZombiesMoved: report.ZombiesMoved,
		Caught:       report.Caught,
		Humans:       s.world.HumanList(),
		Zombies:      s.world.ZombieList(),
		Timestamp:    time.Now().Unix(),
		Sequence:     len(s.history) + 1,
	}
	s.history = append(s.history, entry)
	s.current = append(s.current, entry)

	s.stable = report.Stable()
	s.message = s.tickMessage(report)
	s.caught = len(report.Caught)
	return &entry, nil
}

// BulkTick runs up to ticks steps and stops after the first stable tick.
// It returns the entries of the ticks that ran.
func (s *Simulation) BulkTick(ticks int) ([]TickHistoryEntry, error) {
	ticks = max(ticks, 0)
	entries := make([]TickHistoryEntry, 0, ticks)
	for i := 0; i < ticks; i++ {
		entry, err := s.Tick()
		if err != nil {
			return entries, err
		}
		entries = append(entries, *entry)
		if s.stable {
			break
		}
	}
	return entries, nil
}

func (s *Simulation) tickMessage(report *TickReport) string {
	msgs := s.scenario.Messages
	switch {
	case len(report.Caught) > s.caught:
		if msgs.Caught != "" {
			return msgs.Caught
		}
		return fmt.Sprintf("Humans caught at %d cell(s)", len(report.Caught))
	case report.Stable():
		if msgs.Stable != "" {
			return msgs.Stable
		}
		return "No entity moved; the simulation is stable"
	default:
		return fmt.Sprintf("Tick %d: %d human(s) and %d zombie(s) moved", len(s.current), report.HumansMoved, report.ZombiesMoved)
	}
}

// Reset rebuilds the initial populations from the scenario. The cumulative
// tick history is kept; only the current segment is cleared.
func (s *Simulation) Reset() *SimulationState {
	// build cannot fail here: the scenario was validated by NewSimulation
	if err := s.build(); err != nil {
		s.message = err.Error()
	}
	s.current = nil
	return s.GetState()
}

// Clear empties the grid and both populations and allows obstacles to be placed again
func (s *Simulation) Clear() *SimulationState {
	s.world.Clear()
	s.stable = false
	s.caught = 0
	s.message = "Grid cleared"
	return s.GetState()
}

// AddHuman places a human at (row, col)
func (s *Simulation) AddHuman(row, col int) error {
	if err := s.world.AddHuman(row, col); err != nil {
		return err
	}
	s.stable = false
	return nil
}

// AddZombie places a zombie at (row, col)
func (s *Simulation) AddZombie(row, col int) error {
	if err := s.world.AddZombie(row, col); err != nil {
		return err
	}
	s.stable = false
	return nil
}

// AddObstacle places an obstacle at (row, col); it fails once the simulation has started
func (s *Simulation) AddObstacle(row, col int) error {
	if err := s.world.AddObstacle(row, col); err != nil {
		return err
	}
	s.stable = false
	return nil
}

// DistanceField computes the current distance field seeded by entity
func (s *Simulation) DistanceField(entity EntityType) (*DistanceField, error) {
	return s.world.ComputeDistanceField(entity)
}

// GetTickHistory returns the cumulative tick history
func (s *Simulation) GetTickHistory() []TickHistoryEntry {
	return s.history
}

// GetCurrentTicks returns the ticks since the last reset
func (s *Simulation) GetCurrentTicks() []TickHistoryEntry {
	return s.current
}

// GetLastTick returns the last recorded tick, or nil if none ran
func (s *Simulation) GetLastTick() *TickHistoryEntry {
	if len(s.history) == 0 {
		return nil
	}
	return &s.history[len(s.history)-1]
}
