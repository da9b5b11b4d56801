package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/apocalypse/game/grid"
)

// EntityType selects one of the two populations
type EntityType int

const (
	Human EntityType = iota
	Zombie
)

// TickOrder decides which population moves first within a tick
type TickOrder string

const (
	HumansFirst  TickOrder = "humans_first"
	ZombiesFirst TickOrder = "zombies_first"
)

// Layout legend
const (
	EmptyChar    = '.'
	ObstacleChar = '#'
	HumanChar    = 'H'
	ZombieChar   = 'Z'
	BothChar     = 'X' // human and zombie on the same cell
)

const (
	// Validation constants
	MinGridSize  = 1
	MaxGridSize  = 100
	MaxBulkTicks = 500
)

var (
	ErrFieldMismatch      = errors.New("distance field does not match simulation")
	ErrSimulationStarted  = errors.New("obstacles cannot change after the simulation has started")
	ErrInvalidEntityType  = errors.New("invalid entity type")
	ErrInvalidScenario    = errors.New("invalid scenario")
	ErrNoScenarioProvided = errors.New("scenario cannot be nil")
)

func (e EntityType) String() string {
	switch e {
	case Human:
		return "human"
	case Zombie:
		return "zombie"
	default:
		return fmt.Sprintf("entity(%d)", int(e))
	}
}

// Opponent returns the population that e moves against
func (e EntityType) Opponent() EntityType {
	if e == Human {
		return Zombie
	}
	return Human
}

// ParseEntityType accepts "human"/"humans" and "zombie"/"zombies" in any case
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "human", "humans":
		return Human, nil
	case "zombie", "zombies":
		return Zombie, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidEntityType, s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (e EntityType) MarshalText() ([]byte, error) {
	if e != Human && e != Zombie {
		return nil, fmt.Errorf("%w: %d", ErrInvalidEntityType, int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (e *EntityType) UnmarshalText(text []byte) error {
	parsed, err := ParseEntityType(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Valid reports whether the order is known; the empty order means HumansFirst
func (o TickOrder) Valid() bool {
	return o == "" || o == HumansFirst || o == ZombiesFirst
}

// TickReport summarizes one tick of the core simulation
type TickReport struct {
	HumansMoved  int         `json:"humans_moved"`
	ZombiesMoved int         `json:"zombies_moved"`
	Caught       []grid.Cell `json:"caught,omitempty"`
}

// Stable reports whether nobody moved; every later tick would repeat the same state
func (r *TickReport) Stable() bool {
	return r.HumansMoved == 0 && r.ZombiesMoved == 0
}

// ScenarioMessages are the texts reported for simulation events
type ScenarioMessages struct {
	Welcome string `json:"welcome,omitempty" yaml:"welcome,omitempty"`
	Stable  string `json:"stable,omitempty" yaml:"stable,omitempty"`
	Caught  string `json:"caught,omitempty" yaml:"caught,omitempty"`
}

// ScenarioConfig describes a grid and its initial populations, loaded from JSON or YAML
type ScenarioConfig struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Height      int              `json:"height" yaml:"height"`
	Width       int              `json:"width" yaml:"width"`
	Layout      []string         `json:"layout,omitempty" yaml:"layout,omitempty"`
	Obstacles   []grid.Cell      `json:"obstacles,omitempty" yaml:"obstacles,omitempty"`
	Humans      []grid.Cell      `json:"humans,omitempty" yaml:"humans,omitempty"`
	Zombies     []grid.Cell      `json:"zombies,omitempty" yaml:"zombies,omitempty"`
	TickOrder   TickOrder        `json:"tick_order,omitempty" yaml:"tick_order,omitempty"`
	MaxTicks    int              `json:"max_ticks,omitempty" yaml:"max_ticks,omitempty"`
	Messages    ScenarioMessages `json:"messages" yaml:"messages"`
}

// SimulationState is a JSON snapshot of a running simulation
type SimulationState struct {
	ScenarioName string      `json:"scenario_name"`
	Height       int         `json:"height"`
	Width        int         `json:"width"`
	Tick         int         `json:"tick"`
	Obstacles    []grid.Cell `json:"obstacles"`
	Humans       []grid.Cell `json:"humans"`
	Zombies      []grid.Cell `json:"zombies"`
	NumHumans    int         `json:"num_humans"`
	NumZombies   int         `json:"num_zombies"`
	Caught       []grid.Cell `json:"caught,omitempty"`
	Stable       bool        `json:"stable"`
	Message      string      `json:"message"`
	Layout       []string    `json:"layout"`

	// TotalTicks counts every tick ever run; CurrentTicksCount only those since the last reset
	TotalTicks        int `json:"total_ticks"`
	CurrentTicksCount int `json:"current_ticks_count"`
}

// TickHistoryEntry records the outcome of a single tick
type TickHistoryEntry struct {
	Tick         int         `json:"tick"`
	HumansMoved  int         `json:"humans_moved"`
	ZombiesMoved int         `json:"zombies_moved"`
	Caught       []grid.Cell `json:"caught,omitempty"`
	Humans       []grid.Cell `json:"humans"`
	Zombies      []grid.Cell `json:"zombies"`
	Timestamp    int64       `json:"timestamp"`
	Sequence     int         `json:"sequence"`
}
