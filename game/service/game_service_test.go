package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/apocalypse/game/engine"
	"github.com/wricardo/mcp-training/apocalypse/game/grid"
	"github.com/wricardo/mcp-training/apocalypse/game/service"
)

var errNotFound = errors.New("session not found")

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id, scenarioID string, scenario *engine.ScenarioConfig) (*service.Session, error) {
	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}

	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	sim, err := engine.NewSimulation(scenario)
	if err != nil {
		return nil, err
	}

	sess := &service.Session{
		ID:             id,
		ScenarioID:     scenarioID,
		Simulation:     sim,
		Scenario:       scenario,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	m.sessions[id] = sess
	return sess, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	sess, exists := m.sessions[id]
	if !exists {
		return nil, errNotFound
	}
	return sess, nil
}

func (m *MockSessionManager) GetOrCreate(id, scenarioID string, scenario *engine.ScenarioConfig) (*service.Session, error) {
	if sess, exists := m.sessions[id]; exists {
		return sess, nil
	}
	return m.Create(id, scenarioID, scenario)
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if sess, exists := m.sessions[id]; exists {
		sess.LastAccessedAt = time.Now()
		return nil
	}
	return errNotFound
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.ScenarioConfig
	saved   map[string]*engine.ScenarioConfig
	loadErr error
}

func NewMockConfigManager() *MockConfigManager {
	corridor := &engine.ScenarioConfig{
		Name:        "corridor",
		Description: "A zombie hunts a human down a corridor",
		Layout:      []string{"Z...H"},
		MaxTicks:    5,
	}
	blocked := &engine.ScenarioConfig{
		Name:        "blocked",
		Description: "A wall keeps everyone apart",
		Layout:      []string{"Z#H"},
	}

	return &MockConfigManager{
		configs: map[string]*engine.ScenarioConfig{
			"corridor": corridor,
			"blocked":  blocked,
			"default":  corridor,
		},
		saved: make(map[string]*engine.ScenarioConfig),
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.ScenarioConfig, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	config, exists := m.configs[name]
	if !exists {
		return nil, fmt.Errorf("%s: %w", name, service.ErrScenarioNotFound)
	}
	return config, nil
}

func (m *MockConfigManager) ListConfigs() ([]*service.ScenarioInfo, error) {
	result := make([]*service.ScenarioInfo, 0, len(m.configs))
	for _, name := range []string{"blocked", "corridor"} {
		config := m.configs[name]
		config.Normalize()
		result = append(result, service.NewScenarioInfo(name+".json", name, config))
	}
	return result, nil
}

func (m *MockConfigManager) GetDefault() *engine.ScenarioConfig {
	return m.configs["default"]
}

func (m *MockConfigManager) SaveConfig(name string, config *engine.ScenarioConfig) error {
	config.Normalize()
	if err := engine.ValidateScenarioConfig(config); err != nil {
		return err
	}
	m.saved[name] = config
	m.configs[name] = config
	return nil
}

func newTestService() (service.SimulationService, *MockSessionManager, *MockConfigManager) {
	sessions := NewMockSessionManager()
	configs := NewMockConfigManager()
	return service.NewSimulationService(sessions, configs), sessions, configs
}

func TestSimulationService_CreateSession(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	t.Run("named scenario", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "blocked")
		require.NoError(t, err)

		assert.NotEmpty(t, info.ID)
		assert.Equal(t, "blocked", info.ScenarioID)
		assert.Equal(t, []string{"Z#H"}, info.SimulationState.Layout)
	})

	t.Run("default scenario resolves its id", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "corridor", info.ScenarioID)
	})

	t.Run("unknown scenario lists alternatives", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, service.ErrScenarioNotFound)
		assert.Contains(t, err.Error(), "available scenarios")
		assert.Contains(t, err.Error(), "corridor")
	})

	t.Run("other load errors are wrapped as is", func(t *testing.T) {
		configs := NewMockConfigManager()
		configs.loadErr = fmt.Errorf("corridor.json: %w", engine.ErrInvalidScenario)
		svc := service.NewSimulationService(NewMockSessionManager(), configs)

		_, err := svc.CreateSession(ctx, "corridor")
		require.Error(t, err)
		assert.ErrorIs(t, err, engine.ErrInvalidScenario)
		assert.Contains(t, err.Error(), "failed to load scenario corridor")
		assert.NotContains(t, err.Error(), "available scenarios")
	})
}

func TestSimulationService_Tick(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "corridor")
	require.NoError(t, err)

	result, err := svc.Tick(ctx, info.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Tick.Tick)
	assert.Equal(t, 1, result.Tick.ZombiesMoved)
	assert.Equal(t, []string{".Z..H"}, result.SimulationState.Layout)
	require.NotEmpty(t, result.Events)
	assert.Equal(t, service.EventTick, result.Events[0].Type)

	result, err = svc.Tick(ctx, info.ID, true)
	require.NoError(t, err)
	assert.Equal(t, service.EventReset, result.Events[0].Type)
	assert.Equal(t, 1, result.Tick.Tick, "reset starts a new segment")
	assert.Equal(t, 2, result.Tick.Sequence)

	_, err = svc.Tick(ctx, "nope", false)
	assert.ErrorIs(t, err, errNotFound)
}

func TestSimulationService_RunTicks(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	t.Run("stops when stable", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "blocked")
		require.NoError(t, err)

		result, err := svc.RunTicks(ctx, info.ID, 10, false)
		require.NoError(t, err)

		assert.Equal(t, 1, result.TicksExecuted)
		assert.Equal(t, 10, result.RequestedTicks)
		assert.Equal(t, service.StopReasonStable, result.StopReasonCode)
		assert.True(t, result.Stable)
		assert.False(t, result.Truncated)
	})

	t.Run("stable on the last requested tick", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "blocked")
		require.NoError(t, err)

		result, err := svc.RunTicks(ctx, info.ID, 1, false)
		require.NoError(t, err)

		assert.Equal(t, 1, result.TicksExecuted)
		assert.True(t, result.Stable)
		assert.Equal(t, service.StopReasonStable, result.StopReasonCode)
		assert.Equal(t, 1, result.StoppedOnTick)
	})

	t.Run("truncates to scenario limit", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "corridor")
		require.NoError(t, err)

		result, err := svc.RunTicks(ctx, info.ID, 50, false)
		require.NoError(t, err)

		assert.True(t, result.Truncated)
		assert.Equal(t, 5, result.Limit)
		assert.Equal(t, 5, result.TicksExecuted)
		assert.Equal(t, service.StopReasonLimit, result.StopReasonCode)
		assert.Equal(t, []grid.Cell{{Row: 0, Col: 0}}, result.StartZombies)
		assert.Len(t, result.Ticks, 5)
		assert.Equal(t, 5, result.ZombiesMoved)
		assert.Equal(t, 1, result.HumansMoved, "the human only moves once caught")

		var caught bool
		for _, ev := range result.Events {
			if ev.Type == service.EventCaught {
				caught = true
			}
		}
		assert.True(t, caught)
	})

	t.Run("rejects non-positive counts", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "corridor")
		require.NoError(t, err)

		_, err = svc.RunTicks(ctx, info.ID, 0, false)
		assert.ErrorIs(t, err, service.ErrInvalidTickCount)
	})
}

func TestSimulationService_AddEntity(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "corridor")
	require.NoError(t, err)

	state, err := svc.AddEntity(ctx, info.ID, "obstacle", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Z.#.H"}, state.Layout)

	state, err = svc.AddEntity(ctx, info.ID, "Humans", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, state.NumHumans)

	_, err = svc.AddEntity(ctx, info.ID, "vampire", 0, 1)
	assert.ErrorIs(t, err, service.ErrInvalidEntityKind)

	_, err = svc.AddEntity(ctx, info.ID, "zombie", 5, 5)
	assert.ErrorIs(t, err, grid.ErrOutOfBounds)

	_, err = svc.Tick(ctx, info.ID, false)
	require.NoError(t, err)
	_, err = svc.AddEntity(ctx, info.ID, "obstacle", 0, 3)
	assert.ErrorIs(t, err, engine.ErrSimulationStarted)

	state, err = svc.Clear(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"....."}, state.Layout)
	_, err = svc.AddEntity(ctx, info.ID, "obstacle", 0, 3)
	assert.NoError(t, err)
}

func TestSimulationService_GetDistanceField(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "corridor")
	require.NoError(t, err)

	field, err := svc.GetDistanceField(ctx, info.ID, "zombie")
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2, 3, 4}}, field.Values)

	_, err = svc.GetDistanceField(ctx, info.ID, "ghost")
	assert.ErrorIs(t, err, engine.ErrInvalidEntityType)
}

func TestSimulationService_GetTickHistory(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "corridor")
	require.NoError(t, err)
	_, err = svc.RunTicks(ctx, info.ID, 5, false)
	require.NoError(t, err)

	t.Run("defaults to newest first", func(t *testing.T) {
		history, err := svc.GetTickHistory(ctx, info.ID, service.HistoryOptions{Limit: 2})
		require.NoError(t, err)

		assert.Equal(t, 5, history.TotalTicks)
		assert.Equal(t, 3, history.TotalPages)
		require.Len(t, history.Ticks, 2)
		assert.Equal(t, 5, history.Ticks[0].Sequence)
		assert.Equal(t, 4, history.Ticks[1].Sequence)
		assert.True(t, history.HasNext)
		assert.False(t, history.HasPrevious)
	})

	t.Run("ascending last page", func(t *testing.T) {
		history, err := svc.GetTickHistory(ctx, info.ID, service.HistoryOptions{Page: 3, Limit: 2, Order: "asc"})
		require.NoError(t, err)

		require.Len(t, history.Ticks, 1)
		assert.Equal(t, 5, history.Ticks[0].Sequence)
		assert.False(t, history.HasNext)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		history, err := svc.GetTickHistory(ctx, info.ID, service.HistoryOptions{Page: 9, Limit: 2})
		require.NoError(t, err)
		assert.NotNil(t, history.Ticks)
		assert.Empty(t, history.Ticks)
	})
}

func TestSimulationService_ListAndDeleteSessions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateSession(ctx, "corridor")
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "blocked")
	require.NoError(t, err)

	sessions, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	require.NoError(t, svc.DeleteSession(ctx, first.ID))
	_, err = svc.GetSession(ctx, first.ID)
	assert.ErrorIs(t, err, errNotFound)
}

func TestSimulationService_Reset(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "corridor")
	require.NoError(t, err)
	_, err = svc.RunTicks(ctx, info.ID, 3, false)
	require.NoError(t, err)

	state, err := svc.Reset(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Z...H"}, state.Layout)
	assert.Equal(t, 3, state.TotalTicks)
	assert.Equal(t, 0, state.CurrentTicksCount)
}

func TestSimulationService_Scenarios(t *testing.T) {
	svc, _, configs := newTestService()
	ctx := context.Background()

	scenarios, err := svc.ListScenarios(ctx)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "blocked", scenarios[0].ScenarioID)
	assert.Equal(t, 1, scenarios[0].NumObstacles)

	loaded, err := svc.LoadScenario(ctx, "corridor")
	require.NoError(t, err)
	assert.Equal(t, "corridor", loaded.Name)

	err = svc.SaveScenario(ctx, "tiny", &engine.ScenarioConfig{Name: "tiny", Layout: []string{"ZH"}})
	require.NoError(t, err)
	assert.Contains(t, configs.saved, "tiny")

	err = svc.SaveScenario(ctx, "broken", &engine.ScenarioConfig{Name: "broken"})
	assert.ErrorIs(t, err, engine.ErrInvalidScenario)

	assert.ErrorIs(t, svc.SaveScenario(ctx, "nil", nil), engine.ErrNoScenarioProvided)
}
