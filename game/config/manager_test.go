package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/apocalypse/game/engine"
	"github.com/wricardo/mcp-training/apocalypse/game/service"
)

func createValidScenario(name string) *engine.ScenarioConfig {
	return &engine.ScenarioConfig{
		Name:        name,
		Description: "Test scenario",
		Layout: []string{
			"Z...",
			".#..",
			"...H",
		},
		TickOrder: engine.HumansFirst,
	}
}

func writeJSON(t *testing.T, dir, name string, config *engine.ScenarioConfig) {
	t.Helper()
	data, err := json.Marshal(config)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), data, 0644))
}

func writeYAML(t *testing.T, dir, filename string, config *engine.ScenarioConfig) {
	t.Helper()
	data, err := yaml.Marshal(config)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), data, 0644))
}

// Count returns the number of cached scenarios
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}

func TestNewManager(t *testing.T) {
	t.Run("classic becomes default", func(t *testing.T) {
		dir := t.TempDir()
		writeJSON(t, dir, "classic", createValidScenario("Classic"))
		writeJSON(t, dir, "another", createValidScenario("Another"))

		manager, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, "Classic", manager.GetDefault().Name)
		assert.Equal(t, dir, manager.ConfigDir())
	})

	t.Run("first valid scenario without classic", func(t *testing.T) {
		dir := t.TempDir()
		writeJSON(t, dir, "beta", createValidScenario("Beta"))
		writeJSON(t, dir, "alpha", createValidScenario("Alpha"))

		manager, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, "Alpha", manager.GetDefault().Name)
	})

	t.Run("empty directory falls back to built-in", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		require.NoError(t, err)
		require.NotNil(t, manager.GetDefault())
		assert.Equal(t, engine.DefaultScenario().Name, manager.GetDefault().Name)
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		assert.Error(t, err)
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "json_one", createValidScenario("JSON One"))
	writeYAML(t, dir, "yaml_one.yaml", createValidScenario("YAML One"))
	writeYAML(t, dir, "yml_one.yml", createValidScenario("YML One"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"name": "broken"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unknown.yaml"), []byte("name: x\nlayout: [\"H\"]\nspeed: 1\n"), 0644))

	manager, err := NewManager(dir)
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		wantName string
		wantErr  error
	}{
		{"json by id", "json_one", "JSON One", nil},
		{"json with extension", "json_one.json", "JSON One", nil},
		{"yaml by id", "yaml_one", "YAML One", nil},
		{"yml by id", "yml_one", "YML One", nil},
		{"missing", "nothing", "", ErrConfigNotFound},
		{"invalid scenario", "broken", "", ErrInvalidConfig},
		{"unknown yaml key", "unknown", "", ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := manager.LoadConfig(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, config.Name)
		})
	}

	_, err = manager.LoadConfig("broken")
	assert.ErrorIs(t, err, engine.ErrInvalidScenario, "engine error stays in the chain")
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "zeta", createValidScenario("Zeta"))
	writeYAML(t, dir, "alpha.yaml", createValidScenario("Alpha"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0755))

	manager, err := NewManager(dir)
	require.NoError(t, err)

	configs, err := manager.ListConfigs()
	require.NoError(t, err)
	require.Len(t, configs, 2)

	assert.Equal(t, "alpha", configs[0].ScenarioID)
	assert.Equal(t, "alpha.yaml", configs[0].Filename)
	assert.Equal(t, "zeta", configs[1].ScenarioID)
	assert.Equal(t, 3, configs[1].Height)
	assert.Equal(t, 4, configs[1].Width)
	assert.Equal(t, 1, configs[1].NumHumans)
	assert.Equal(t, 1, configs[1].NumZombies)
	assert.Equal(t, 1, configs[1].NumObstacles)
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, manager.SaveConfig("saved", createValidScenario("Saved")))
	require.NoError(t, manager.SaveConfig("other.yaml", createValidScenario("Other")))
	assert.FileExists(t, filepath.Join(dir, "saved.json"))
	assert.FileExists(t, filepath.Join(dir, "other.yaml"))

	// Round trip through disk, not the cache
	require.NoError(t, manager.RefreshCache())
	loaded, err := manager.LoadConfig("other")
	require.NoError(t, err)
	assert.Equal(t, createValidScenario("Other").Layout, loaded.Layout)

	err = manager.SaveConfig("bad", &engine.ScenarioConfig{Name: "bad"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.NoFileExists(t, filepath.Join(dir, "bad.json"))

	assert.ErrorIs(t, manager.SaveConfig("nil", nil), ErrInvalidConfig)
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "classic", createValidScenario("Classic"))
	writeJSON(t, dir, "other", createValidScenario("Other"))

	manager, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, manager.SetDefault("other"))
	assert.Equal(t, "Other", manager.GetDefault().Name)
	assert.ErrorIs(t, manager.SetDefault("missing"), ErrConfigNotFound)
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "classic", createValidScenario("Classic"))

	manager, err := NewManager(dir)
	require.NoError(t, err)

	changed := createValidScenario("Classic v2")
	writeJSON(t, dir, "classic", changed)

	cached, err := manager.LoadConfig("classic")
	require.NoError(t, err)
	assert.Equal(t, "Classic", cached.Name, "cached copy is served until refresh")

	require.NoError(t, manager.RefreshCache())
	assert.Equal(t, "Classic v2", manager.GetDefault().Name)
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 5; i++ {
		writeJSON(t, dir, fmt.Sprintf("config%d", i), createValidScenario(fmt.Sprintf("Config%d", i)))
	}

	manager, err := NewManager(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := manager.LoadConfig(fmt.Sprintf("config%d", id%5+1))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, manager.Count())
}

func TestManager_CachingBehavior(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "classic", createValidScenario("Classic"))
	writeJSON(t, dir, "test", createValidScenario("Test"))

	manager, err := NewManager(dir)
	require.NoError(t, err)

	first, err := manager.LoadConfig("test")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := manager.LoadConfig("test.json")
		require.NoError(t, err)
		assert.Same(t, first, again)
	}

	assert.Equal(t, 2, manager.Count(), "classic and test are cached")
}

func TestManager_RefreshCacheConcurrent(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "classic", createValidScenario("Classic"))
	writeJSON(t, dir, "other", createValidScenario("Other"))

	manager, err := NewManager(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			assert.NoError(t, manager.RefreshCache())
		}()
		go func() {
			defer wg.Done()
			assert.NotNil(t, manager.GetDefault())
		}()
		go func() {
			defer wg.Done()
			_, err := manager.LoadConfig("other")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, "Classic", manager.GetDefault().Name)
}

func TestManager_NotFoundMatchesService(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = manager.LoadConfig("missing")
	assert.ErrorIs(t, err, ErrConfigNotFound)
	assert.ErrorIs(t, err, service.ErrScenarioNotFound)
}
