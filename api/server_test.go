package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/apocalypse/game/config"
	"github.com/wricardo/mcp-training/apocalypse/game/grid"
	"github.com/wricardo/mcp-training/apocalypse/game/service"
	"github.com/wricardo/mcp-training/apocalypse/game/session"
	"github.com/wricardo/mcp-training/apocalypse/transport/websocket"
)

const corridorYAML = `name: corridor
description: A zombie hunts a human down a corridor
layout:
  - "Z...H"
tick_order: humans_first
`

const blockedJSON = `{
  "name": "blocked",
  "description": "A wall keeps them apart",
  "layout": ["Z#H"]
}`

type testEnv struct {
	server    *Server
	configDir string
	hub       *websocket.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corridor.yaml"), []byte(corridorYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocked.json"), []byte(blockedJSON), 0644))

	configs, err := config.NewManager(dir)
	require.NoError(t, err)

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	svc := service.NewSimulationService(session.NewManager(), configs)
	return &testEnv{
		server:    NewServer(svc, hub),
		configDir: dir,
		hub:       hub,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createSession(t *testing.T, scenario string) string {
	t.Helper()
	rec := e.do(t, "POST", "/api/sessions", map[string]string{"scenario": scenario})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var info service.SessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	return info.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t)

	t.Run("named scenario", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/sessions", map[string]string{"scenario": "corridor"})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		info := decode[service.SessionInfo](t, rec)
		assert.Len(t, info.ID, 4)
		assert.Equal(t, "corridor", info.ScenarioID)
		require.NotNil(t, info.SimulationState)
		assert.Equal(t, []grid.Cell{{Row: 0, Col: 0}}, info.SimulationState.Zombies)
		assert.Equal(t, []grid.Cell{{Row: 0, Col: 4}}, info.SimulationState.Humans)
	})

	t.Run("scenario_id alias", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/sessions", map[string]string{"scenario_id": "blocked"})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "blocked", decode[service.SessionInfo](t, rec).ScenarioID)
	})

	t.Run("empty body uses default", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/sessions", nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("unknown scenario", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/sessions", map[string]string{"scenario": "atlantis"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "available scenarios")
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/sessions", "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListSessions(t *testing.T) {
	env := newTestEnv(t)
	first := env.createSession(t, "corridor")
	time.Sleep(2 * time.Millisecond)
	second := env.createSession(t, "blocked")

	rec := env.do(t, "GET", "/api/sessions?sort=created&order=asc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count    int                    `json:"count"`
		Total    int                    `json:"total"`
		Sort     string                 `json:"sort"`
		Order    string                 `json:"order"`
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "created", resp.Sort)
	assert.Equal(t, "asc", resp.Order)
	require.Len(t, resp.Sessions, 2)
	assert.Equal(t, first, resp.Sessions[0].ID)
	assert.Equal(t, second, resp.Sessions[1].ID)

	rec = env.do(t, "GET", "/api/sessions?sort=created&limit=1", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "desc", resp.Order)
	assert.Equal(t, second, resp.Sessions[0].ID)
}

func TestGetAndDeleteSession(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "corridor")

	rec := env.do(t, "GET", "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode[service.SessionInfo](t, rec).ID)

	rec = env.do(t, "DELETE", "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, "DELETE", "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTick(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "corridor")

	rec := env.do(t, "POST", "/api/sessions/"+id+"/tick", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[service.TickResult](t, rec)
	assert.Equal(t, 1, result.Tick.Tick)
	assert.Equal(t, 0, result.Tick.HumansMoved)
	assert.Equal(t, 1, result.Tick.ZombiesMoved)
	assert.False(t, result.Stable)
	assert.Equal(t, []grid.Cell{{Row: 0, Col: 1}}, result.SimulationState.Zombies)

	rec = env.do(t, "POST", "/api/sessions/"+id+"/tick", map[string]bool{"reset": true})
	require.Equal(t, http.StatusOK, rec.Code)
	result = decode[service.TickResult](t, rec)
	assert.Equal(t, 1, result.Tick.Tick, "reset restarts the tick counter")
	assert.Equal(t, service.EventReset, result.Events[0].Type)

	rec = env.do(t, "POST", "/api/sessions/nope/tick", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRun(t *testing.T) {
	env := newTestEnv(t)

	t.Run("stops when stable", func(t *testing.T) {
		id := env.createSession(t, "blocked")
		rec := env.do(t, "POST", "/api/sessions/"+id+"/run", map[string]int{"ticks": 10})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		result := decode[service.RunResult](t, rec)
		assert.Equal(t, 1, result.TicksExecuted)
		assert.Equal(t, 10, result.RequestedTicks)
		assert.Equal(t, service.StopReasonStable, result.StopReasonCode)
		assert.True(t, result.Stable)
	})

	t.Run("runs requested ticks", func(t *testing.T) {
		id := env.createSession(t, "corridor")
		rec := env.do(t, "POST", "/api/sessions/"+id+"/run", map[string]int{"ticks": 3})
		require.Equal(t, http.StatusOK, rec.Code)

		result := decode[service.RunResult](t, rec)
		assert.Equal(t, 3, result.TicksExecuted)
		assert.Empty(t, result.StopReasonCode)
		assert.Equal(t, []grid.Cell{{Row: 0, Col: 0}}, result.StartZombies)
		assert.Len(t, result.Ticks, 3)
	})

	t.Run("invalid tick count", func(t *testing.T) {
		id := env.createSession(t, "corridor")
		rec := env.do(t, "POST", "/api/sessions/"+id+"/run", map[string]int{"ticks": 0})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing body", func(t *testing.T) {
		id := env.createSession(t, "corridor")
		rec := env.do(t, "POST", "/api/sessions/"+id+"/run", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestResetAndClear(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "corridor")

	env.do(t, "POST", "/api/sessions/"+id+"/run", map[string]int{"ticks": 2})

	rec := env.do(t, "POST", "/api/sessions/"+id+"/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reset struct {
		State struct {
			Tick    int         `json:"tick"`
			Zombies []grid.Cell `json:"zombies"`
		} `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reset))
	assert.Equal(t, 0, reset.State.Tick)
	assert.Equal(t, []grid.Cell{{Row: 0, Col: 0}}, reset.State.Zombies)

	rec = env.do(t, "POST", "/api/sessions/"+id+"/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/api/sessions/"+id+"/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		NumHumans  int `json:"num_humans"`
		NumZombies int `json:"num_zombies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Zero(t, state.NumHumans)
	assert.Zero(t, state.NumZombies)
}

func TestAddEntity(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "corridor")
	path := "/api/sessions/" + id + "/entities"

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"human", map[string]interface{}{"type": "human", "row": 0, "col": 2}, http.StatusCreated},
		{"zombie plural", map[string]interface{}{"type": "Zombies", "row": 0, "col": 3}, http.StatusCreated},
		{"obstacle", map[string]interface{}{"type": "obstacle", "row": 0, "col": 1}, http.StatusCreated},
		{"out of bounds", map[string]interface{}{"type": "human", "row": 1, "col": 0}, http.StatusBadRequest},
		{"unknown type", map[string]interface{}{"type": "vampire", "row": 0, "col": 0}, http.StatusBadRequest},
		{"missing coordinates", map[string]interface{}{"type": "human"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := env.do(t, "GET", "/api/sessions/"+id+"/state", nil)
	var state struct {
		NumHumans  int `json:"num_humans"`
		NumZombies int `json:"num_zombies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 2, state.NumHumans)
	assert.Equal(t, 2, state.NumZombies)

	t.Run("obstacle after first tick", func(t *testing.T) {
		env.do(t, "POST", "/api/sessions/"+id+"/tick", nil)
		rec := env.do(t, "POST", path, map[string]interface{}{"type": "obstacle", "row": 0, "col": 4})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestDistanceField(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "corridor")

	rec := env.do(t, "GET", "/api/sessions/"+id+"/distance-field?entity=zombie", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var field struct {
		Height      int     `json:"height"`
		Width       int     `json:"width"`
		Unreachable int     `json:"unreachable"`
		Values      [][]int `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &field))
	assert.Equal(t, 5, field.Unreachable)
	assert.Equal(t, [][]int{{0, 1, 2, 3, 4}}, field.Values)

	rec = env.do(t, "GET", "/api/sessions/"+id+"/distance-field?entity=humans", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &field))
	assert.Equal(t, [][]int{{4, 3, 2, 1, 0}}, field.Values)

	rec = env.do(t, "GET", "/api/sessions/"+id+"/distance-field?entity=ghost", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "corridor")
	env.do(t, "POST", "/api/sessions/"+id+"/run", map[string]int{"ticks": 3})

	rec := env.do(t, "GET", "/api/sessions/"+id+"/history?order=asc&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	history := decode[service.HistoryResponse](t, rec)
	assert.Equal(t, 3, history.TotalTicks)
	assert.Equal(t, 2, history.TotalPages)
	assert.True(t, history.HasNext)
	require.Len(t, history.Ticks, 2)
	assert.Equal(t, 1, history.Ticks[0].Tick)
	assert.Equal(t, 2, history.Ticks[1].Tick)

	rec = env.do(t, "GET", "/api/sessions/"+id+"/history", nil)
	history = decode[service.HistoryResponse](t, rec)
	require.Len(t, history.Ticks, 3)
	assert.Equal(t, 3, history.Ticks[0].Tick, "most recent first by default")
}

func TestScenarios(t *testing.T) {
	env := newTestEnv(t)

	t.Run("list", func(t *testing.T) {
		rec := env.do(t, "GET", "/api/scenarios", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		scenarios := decode[[]service.ScenarioInfo](t, rec)
		require.Len(t, scenarios, 2)
		assert.Equal(t, "blocked", scenarios[0].ScenarioID)
		assert.Equal(t, 1, scenarios[0].NumObstacles)
		assert.Equal(t, "corridor", scenarios[1].ScenarioID)
	})

	t.Run("get", func(t *testing.T) {
		rec := env.do(t, "GET", "/api/scenarios/corridor", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "corridor", decode[map[string]interface{}](t, rec)["name"])

		rec = env.do(t, "GET", "/api/scenarios/nowhere", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("create json", func(t *testing.T) {
		body := map[string]interface{}{
			"name":   "arena",
			"layout": []string{"Z..", "...", "..H"},
		}
		rec := env.do(t, "POST", "/api/scenarios", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.FileExists(t, filepath.Join(env.configDir, "arena.json"))

		env.createSession(t, "arena")
	})

	t.Run("create yaml", func(t *testing.T) {
		body := map[string]interface{}{
			"name":   "ring",
			"layout": []string{"ZH"},
		}
		rec := env.do(t, "POST", "/api/scenarios?format=yaml", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.FileExists(t, filepath.Join(env.configDir, "ring.yaml"))
	})

	t.Run("invalid scenario", func(t *testing.T) {
		body := map[string]interface{}{
			"name":   "broken",
			"layout": []string{"Z?H"},
		}
		rec := env.do(t, "POST", "/api/scenarios", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoFileExists(t, filepath.Join(env.configDir, "broken.json"))
	})

	t.Run("missing name", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/scenarios", map[string]interface{}{"layout": []string{"H"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

type failingService struct {
	service.SimulationService
}

func (failingService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	return nil, errors.New("storage offline")
}

func TestInternalError(t *testing.T) {
	server := NewServer(failingService{}, nil)

	req := httptest.NewRequest("GET", "/api/sessions", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "storage offline", errorMessage(t, rec))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{session.ErrSessionNotFound, http.StatusNotFound},
		{config.ErrConfigNotFound, http.StatusNotFound},
		{grid.ErrOutOfBounds, http.StatusBadRequest},
		{service.ErrInvalidTickCount, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "corridor")

	ts := httptest.NewServer(env.server)
	defer ts.Close()

	t.Run("rejects unknown session", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/ws?session=zzzz")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=" + id
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return env.hub.ClientCount(id) == 1
	}, time.Second, 10*time.Millisecond)

	rec := env.do(t, "POST", "/api/sessions/"+id+"/tick", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var message websocket.Message
	require.NoError(t, json.Unmarshal(data, &message))
	assert.Equal(t, id, message.SessionID)
	assert.Equal(t, websocket.EventStateUpdate, message.Event)
	require.NotNil(t, message.SimulationState)
	assert.Equal(t, 1, message.SimulationState.Tick)
}
