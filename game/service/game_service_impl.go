package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/apocalypse/game/engine"
)

// simulationServiceImpl implements the SimulationService interface. Every
// operation holds mu, including reads, since lookups stamp LastAccessedAt.
type simulationServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.Mutex
}

// NewSimulationService creates a new simulation service instance
func NewSimulationService(sessions SessionManager, configs ConfigManager) SimulationService {
	return &simulationServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// CreateSession creates a new session running the named scenario, or the default one
func (s *simulationServiceImpl) CreateSession(ctx context.Context, scenarioName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var scenario *engine.ScenarioConfig
	var err error
	scenarioID := scenarioName
	if scenarioName != "" {
		scenario, err = s.configs.LoadConfig(scenarioName)
		if err != nil {
			return nil, s.scenarioLoadError(scenarioName, err)
		}
	} else {
		scenario = s.configs.GetDefault()
		scenarioID = s.scenarioID(scenario.Name)
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", scenarioID, scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"session":  sess.ID,
		"scenario": scenarioID,
	}).Info("Session created")

	return sessionInfo(sess), nil
}

// scenarioLoadError lists the available scenarios when the requested one is missing
func (s *simulationServiceImpl) scenarioLoadError(name string, err error) error {
	if !errors.Is(err, ErrScenarioNotFound) {
		return fmt.Errorf("failed to load scenario %s: %w", name, err)
	}

	available, listErr := s.configs.ListConfigs()
	if listErr == nil && len(available) > 0 {
		ids := make([]string, 0, len(available))
		for _, info := range available {
			ids = append(ids, info.ScenarioID)
		}
		return fmt.Errorf("scenario '%s' not found, available scenarios: %v: %w", name, ids, err)
	}
	return fmt.Errorf("scenario '%s' not found, use /api/scenarios to list available scenarios: %w", name, err)
}

// scenarioID returns the scenario_id for a display name, used for consistent API responses
func (s *simulationServiceImpl) scenarioID(name string) string {
	available, err := s.configs.ListConfigs()
	if err == nil {
		for _, info := range available {
			if info.Name == name {
				return info.ScenarioID
			}
		}
	}
	if name == "" {
		return "default"
	}
	return name
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:              sess.ID,
		ScenarioID:      sess.ScenarioID,
		CreatedAt:       sess.CreatedAt,
		LastAccessedAt:  sess.LastAccessedAt,
		SimulationState: sess.Simulation.GetState(),
		Scenario:        sess.Scenario,
	}
}

// session looks up a session and marks it accessed
func (s *simulationServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	_ = s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// GetSession retrieves session information
func (s *simulationServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *simulationServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *simulationServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	logrus.WithField("session", sessionID).Info("Session deleted")
	return nil
}

// Tick advances a session by one tick
func (s *simulationServiceImpl) Tick(ctx context.Context, sessionID string, reset bool) (*TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	var events []SimulationEvent
	if reset {
		sess.Simulation.Reset()
		events = append(events, resetEvent())
	}

	entry, err := sess.Simulation.Tick()
	if err != nil {
		return nil, fmt.Errorf("tick failed: %w", err)
	}
	events = append(events, tickEvents(*entry, sess.Simulation.IsStable())...)

	state := sess.Simulation.GetState()
	logrus.WithFields(logrus.Fields{
		"session":       sessionID,
		"tick":          entry.Tick,
		"humans_moved":  entry.HumansMoved,
		"zombies_moved": entry.ZombiesMoved,
		"caught":        len(entry.Caught),
	}).Debug("Tick")

	return &TickResult{
		Tick:            *entry,
		Stable:          state.Stable,
		SimulationState: state,
		Message:         state.Message,
		Events:          events,
	}, nil
}

// RunTicks runs up to ticks ticks, capped by the scenario limit, stopping once the simulation is stable
func (s *simulationServiceImpl) RunTicks(ctx context.Context, sessionID string, ticks int, reset bool) (*RunResult, error) {
	if ticks <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidTickCount, ticks)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		RequestedTicks: ticks,
		Events:         make([]SimulationEvent, 0),
	}

	if reset {
		sess.Simulation.Reset()
		result.Events = append(result.Events, resetEvent())
	}

	world := sess.Simulation.World()
	result.StartHumans = world.HumanList()
	result.StartZombies = world.ZombieList()

	// Limit ticks to prevent abuse
	limit := runLimit(sess.Scenario)
	if ticks > limit {
		result.Truncated = true
		result.Limit = limit
		ticks = limit
	}

	entries, err := sess.Simulation.BulkTick(ticks)
	for _, entry := range entries {
		result.HumansMoved += entry.HumansMoved
		result.ZombiesMoved += entry.ZombiesMoved
		result.Events = append(result.Events, tickEvents(entry, entry.HumansMoved == 0 && entry.ZombiesMoved == 0)...)
	}
	result.Ticks = entries
	result.TicksExecuted = len(entries)
	if err != nil {
		return nil, fmt.Errorf("run stopped on tick %d: %w", len(entries)+1, err)
	}

	switch {
	case sess.Simulation.IsStable():
		result.StopReasonCode = StopReasonStable
		result.StoppedOnTick = len(entries)
	case result.Truncated:
		result.StopReasonCode = StopReasonLimit
		result.StoppedOnTick = len(entries)
	}

	state := sess.Simulation.GetState()
	result.EndHumans = state.Humans
	result.EndZombies = state.Zombies
	result.Stable = state.Stable
	result.Message = state.Message
	result.SimulationState = state

	logrus.WithFields(logrus.Fields{
		"session":   sessionID,
		"executed":  result.TicksExecuted,
		"requested": result.RequestedTicks,
		"stop":      result.StopReasonCode,
		"humans":    state.NumHumans,
		"zombies":   state.NumZombies,
		"caught":    len(state.Caught),
	}).Info("Bulk run")

	return result, nil
}

// runLimit is the largest number of ticks a single bulk run may execute
func runLimit(scenario *engine.ScenarioConfig) int {
	if scenario != nil && scenario.MaxTicks > 0 && scenario.MaxTicks < engine.MaxBulkTicks {
		return scenario.MaxTicks
	}
	return engine.MaxBulkTicks
}

func resetEvent() SimulationEvent {
	return SimulationEvent{
		Type:      EventReset,
		Message:   "Simulation reset to initial state",
		Timestamp: time.Now(),
	}
}

// tickEvents generates the events of one tick
func tickEvents(entry engine.TickHistoryEntry, stable bool) []SimulationEvent {
	now := time.Now()
	events := []SimulationEvent{{
		Type:      EventTick,
		Message:   fmt.Sprintf("Tick %d: %d human(s) and %d zombie(s) moved", entry.Tick, entry.HumansMoved, entry.ZombiesMoved),
		Timestamp: now,
		Tick:      entry.Tick,
	}}

	if len(entry.Caught) > 0 {
		events = append(events, SimulationEvent{
			Type:      EventCaught,
			Message:   fmt.Sprintf("Humans caught at %d cell(s)", len(entry.Caught)),
			Timestamp: now,
			Tick:      entry.Tick,
			Cells:     entry.Caught,
		})
	}
	if stable {
		events = append(events, SimulationEvent{
			Type:      EventStable,
			Message:   "Nobody moved; the simulation is stable",
			Timestamp: now,
			Tick:      entry.Tick,
		})
	}
	return events
}

// Reset restores a session's scenario populations
func (s *simulationServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.SimulationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	logrus.WithField("session", sessionID).Info("Simulation reset")
	return sess.Simulation.Reset(), nil
}

// Clear empties a session's grid and populations
func (s *simulationServiceImpl) Clear(ctx context.Context, sessionID string) (*engine.SimulationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	logrus.WithField("session", sessionID).Info("Simulation cleared")
	return sess.Simulation.Clear(), nil
}

// AddEntity places a human, zombie or obstacle in a session
func (s *simulationServiceImpl) AddEntity(ctx context.Context, sessionID, kind string, row, col int) (*engine.SimulationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sim := sess.Simulation
	if strings.EqualFold(strings.TrimSpace(kind), EntityKindObstacle) {
		err = sim.AddObstacle(row, col)
	} else {
		entity, parseErr := engine.ParseEntityType(kind)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEntityKind, kind)
		}
		switch entity {
		case engine.Human:
			err = sim.AddHuman(row, col)
		case engine.Zombie:
			err = sim.AddZombie(row, col)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("cannot add %s at (%d,%d): %w", kind, row, col, err)
	}

	logrus.WithFields(logrus.Fields{
		"session": sessionID,
		"type":    kind,
		"row":     row,
		"col":     col,
	}).Debug("Entity added")
	return sim.GetState(), nil
}

// GetSimulationState retrieves the current simulation state
func (s *simulationServiceImpl) GetSimulationState(ctx context.Context, sessionID string) (*engine.SimulationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Simulation.GetState(), nil
}

// GetDistanceField computes the distance field seeded by the named population
func (s *simulationServiceImpl) GetDistanceField(ctx context.Context, sessionID, entity string) (*engine.DistanceField, error) {
	source, err := engine.ParseEntityType(entity)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Simulation.DistanceField(source)
}

// GetTickHistory returns paginated cumulative tick history
func (s *simulationServiceImpl) GetTickHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return paginate(sess.Simulation.GetTickHistory(), opts), nil
}

// paginate slices history into the requested page
func paginate(history []engine.TickHistoryEntry, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	ticks := []engine.TickHistoryEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			ticks = append(ticks, history[i])
		}
	} else if start < total {
		ticks = append(ticks, history[start:end]...)
	}

	return &HistoryResponse{
		Ticks:       ticks,
		TotalTicks:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// ListScenarios returns available scenarios
func (s *simulationServiceImpl) ListScenarios(ctx context.Context) ([]*ScenarioInfo, error) {
	return s.configs.ListConfigs()
}

// LoadScenario loads a specific scenario
func (s *simulationServiceImpl) LoadScenario(ctx context.Context, scenarioName string) (*engine.ScenarioConfig, error) {
	return s.configs.LoadConfig(scenarioName)
}

// SaveScenario saves a scenario to disk
func (s *simulationServiceImpl) SaveScenario(ctx context.Context, scenarioName string, scenario *engine.ScenarioConfig) error {
	if scenario == nil {
		return engine.ErrNoScenarioProvided
	}
	if err := s.configs.SaveConfig(scenarioName, scenario); err != nil {
		return fmt.Errorf("failed to save scenario %s: %w", scenarioName, err)
	}
	return nil
}
