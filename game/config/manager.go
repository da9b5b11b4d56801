package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/apocalypse/game/engine"
	"github.com/wricardo/mcp-training/apocalypse/game/service"
)

var (
	ErrConfigNotFound = service.ErrScenarioNotFound
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultScenarioName is loaded as the default when present
const DefaultScenarioName = "classic"

// extensions are tried in this order when a name carries none
var extensions = []string{".json", ".yaml", ".yml"}

// Manager handles scenario loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.ScenarioConfig
	configs       map[string]*engine.ScenarioConfig
	mu            sync.RWMutex
}

// NewManager creates a new scenario manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.ScenarioConfig),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// ConfigDir returns the directory scenarios are read from
func (m *Manager) ConfigDir() string {
	return m.configDir
}

// LoadConfig loads a scenario by name, with or without its file extension
func (m *Manager) LoadConfig(name string) (*engine.ScenarioConfig, error) {
	id := scenarioID(name)

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	configPath, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := engine.ParseScenarioConfig(data, filepath.Ext(configPath))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	m.configs[id] = config
	return config, nil
}

// resolve finds the file backing a scenario name
func (m *Manager) resolve(name string) (string, error) {
	if isScenarioFile(name) {
		path := filepath.Join(m.configDir, filepath.Base(name))
		if _, err := os.Stat(path); err != nil {
			return "", ErrConfigNotFound
		}
		return path, nil
	}

	for _, ext := range extensions {
		path := filepath.Join(m.configDir, filepath.Base(name)+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// ListConfigs returns information about all valid scenarios, sorted by id
func (m *Manager) ListConfigs() ([]*service.ScenarioInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var configs []*service.ScenarioInfo

	for _, entry := range entries {
		if entry.IsDir() || !isScenarioFile(entry.Name()) {
			continue
		}

		id := scenarioID(entry.Name())
		if seen[id] {
			continue
		}

		config, err := m.LoadConfig(entry.Name())
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"file":  entry.Name(),
				"error": err,
			}).Warn("Skipping invalid scenario")
			continue
		}
		seen[id] = true

		configs = append(configs, service.NewScenarioInfo(entry.Name(), id, config))
	}

	sort.Slice(configs, func(i, j int) bool {
		return configs[i].ScenarioID < configs[j].ScenarioID
	})
	return configs, nil
}

// GetDefault returns the default scenario
func (m *Manager) GetDefault() *engine.ScenarioConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default scenario by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached scenario and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.ScenarioConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// loadDefaultConfig picks classic, then the first valid scenario, then the built-in one
func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig(DefaultScenarioName)
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			m.setDefault(engine.DefaultScenario())
			return nil
		}

		config, err = m.LoadConfig(configs[0].Filename)
		if err != nil {
			m.setDefault(engine.DefaultScenario())
			return nil
		}
	}

	m.setDefault(config)
	return nil
}

func (m *Manager) setDefault(config *engine.ScenarioConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
}

// SaveConfig validates a scenario and writes it to disk. The name's extension
// picks the format; names without one are saved as JSON.
func (m *Manager) SaveConfig(name string, config *engine.ScenarioConfig) error {
	if config == nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, engine.ErrNoScenarioProvided)
	}
	config.Normalize()
	if err := engine.ValidateScenarioConfig(config); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	filename := filepath.Base(name)
	if !isScenarioFile(filename) {
		filename += ".json"
	}

	var (
		data []byte
		err  error
	)
	switch filepath.Ext(filename) {
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
	default:
		data, err = yaml.Marshal(config)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, filename)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[scenarioID(filename)] = config
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"scenario": config.Name,
		"file":     filename,
	}).Info("Scenario saved")
	return nil
}

func isScenarioFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range extensions {
		if ext == known {
			return true
		}
	}
	return false
}

// scenarioID strips a known extension from a file or scenario name
func scenarioID(name string) string {
	name = filepath.Base(name)
	if isScenarioFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
