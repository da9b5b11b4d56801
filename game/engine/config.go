package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/apocalypse/game/grid"
)

// Normalize fills dimensions from the layout when they are omitted
func (c *ScenarioConfig) Normalize() {
	if c.Height == 0 && len(c.Layout) > 0 {
		c.Height = len(c.Layout)
	}
	if c.Width == 0 && len(c.Layout) > 0 {
		c.Width = len(c.Layout[0])
	}
	if c.TickOrder == "" {
		c.TickOrder = HumansFirst
	}
}

// Entities returns the obstacles, humans and zombies of the scenario: layout
// cells first in row-major order, then the explicit lists in file order.
func (c *ScenarioConfig) Entities() (obstacles, humans, zombies []grid.Cell) {
	for row, line := range c.Layout {
		for col, char := range line {
			cell := grid.Cell{Row: row, Col: col}
			switch char {
			case ObstacleChar:
				obstacles = append(obstacles, cell)
			case HumanChar:
				humans = append(humans, cell)
			case ZombieChar:
				zombies = append(zombies, cell)
			case BothChar:
				humans = append(humans, cell)
				zombies = append(zombies, cell)
			}
		}
	}
	obstacles = append(obstacles, c.Obstacles...)
	humans = append(humans, c.Humans...)
	zombies = append(zombies, c.Zombies...)
	return obstacles, humans, zombies
}

// ValidateScenarioConfig checks a scenario for correctness. The config should
// already be normalized.
func ValidateScenarioConfig(config *ScenarioConfig) error {
	if config == nil {
		return ErrNoScenarioProvided
	}
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}

	if config.Height < MinGridSize || config.Height > MaxGridSize {
		return fmt.Errorf("%w: height must be between %d and %d, got %d", ErrInvalidScenario, MinGridSize, MaxGridSize, config.Height)
	}
	if config.Width < MinGridSize || config.Width > MaxGridSize {
		return fmt.Errorf("%w: width must be between %d and %d, got %d", ErrInvalidScenario, MinGridSize, MaxGridSize, config.Width)
	}

	if len(config.Layout) > 0 {
		if len(config.Layout) != config.Height {
			return fmt.Errorf("%w: layout must have %d rows to match height, got %d", ErrInvalidScenario, config.Height, len(config.Layout))
		}
		for i, line := range config.Layout {
			if len(line) != config.Width {
				return fmt.Errorf("%w: row %d must have %d characters to match width, got %d", ErrInvalidScenario, i, config.Width, len(line))
			}
			for j, char := range line {
				switch char {
				case EmptyChar, ObstacleChar, HumanChar, ZombieChar, BothChar:
				default:
					return fmt.Errorf("%w: invalid character '%c' at row %d, col %d", ErrInvalidScenario, char, i, j)
				}
			}
		}
	}

	if !config.TickOrder.Valid() {
		return fmt.Errorf("%w: unknown tick_order %q", ErrInvalidScenario, config.TickOrder)
	}
	if config.MaxTicks < 0 || config.MaxTicks > MaxBulkTicks {
		return fmt.Errorf("%w: max_ticks must be between 0 and %d, got %d", ErrInvalidScenario, MaxBulkTicks, config.MaxTicks)
	}

	inBounds := func(c grid.Cell) bool {
		return c.Row >= 0 && c.Row < config.Height && c.Col >= 0 && c.Col < config.Width
	}
	obstacles, humans, zombies := config.Entities()
	blocked := make(map[grid.Cell]bool, len(obstacles))
	for _, cell := range obstacles {
		if !inBounds(cell) {
			return fmt.Errorf("%w: obstacle %v: %w", ErrInvalidScenario, cell, grid.ErrOutOfBounds)
		}
		blocked[cell] = true
	}
	for _, kind := range []EntityType{Human, Zombie} {
		cells := humans
		if kind == Zombie {
			cells = zombies
		}
		for _, cell := range cells {
			if !inBounds(cell) {
				return fmt.Errorf("%w: %s %v: %w", ErrInvalidScenario, kind, cell, grid.ErrOutOfBounds)
			}
			if blocked[cell] {
				return fmt.Errorf("%w: %s %v stands on an obstacle", ErrInvalidScenario, kind, cell)
			}
		}
	}

	return nil
}

// ParseScenarioConfig decodes a scenario in the given format ("json" or
// "yaml"), normalizes it and validates it. YAML documents may not carry
// unknown keys.
func ParseScenarioConfig(data []byte, format string) (*ScenarioConfig, error) {
	var config ScenarioConfig

	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
		}
	case "yaml", "yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&config); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidScenario, format)
	}

	config.Normalize()
	if err := ValidateScenarioConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadScenarioConfig loads a scenario from a .json, .yaml or .yml file
func LoadScenarioConfig(filename string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseScenarioConfig(data, filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filename), err)
	}
	return config, nil
}

// DefaultScenario returns the built-in scenario used when no file is available
func DefaultScenario() *ScenarioConfig {
	config := &ScenarioConfig{
		Name:        "default",
		Description: "Two humans flee three zombies around a walled courtyard",
		Layout: []string{
			"Z.........",
			"..........",
			"..####....",
			"..#..#..H.",
			"..#..#....",
			"..##.#....",
			"..........",
			"....H.....",
			"..........",
			"Z.......Z.",
		},
		TickOrder: HumansFirst,
		MaxTicks:  200,
		Messages: ScenarioMessages{
			Welcome: "The dead are walking. Humans run, zombies chase.",
			Stable:  "Nobody moved. The simulation is stable.",
			Caught:  "A zombie caught up with a human!",
		},
	}
	config.Normalize()
	return config
}
