package engine

import (
	"fmt"
	"iter"
	"slices"

	"github.com/wricardo/mcp-training/apocalypse/game/grid"
	"github.com/wricardo/mcp-training/apocalypse/game/queue"
)

// Apocalypse simulates zombies pursuing humans on a grid with obstacles.
//
// Entities are identified by position only. Several entities may share a
// cell and a human may share a cell with a zombie; nothing is resolved here.
// An Apocalypse is not safe for concurrent use.
type Apocalypse struct {
	obstacles *grid.Grid
	humans    *queue.Queue[grid.Cell]
	zombies   *queue.Queue[grid.Cell]
	started   bool
}

// NewApocalypse creates a simulation of the given size with the given obstacles,
// zombies and humans. Populations keep the order of the input lists.
func NewApocalypse(height, width int, obstacles, zombies, humans []grid.Cell) (*Apocalypse, error) {
	g, err := grid.New(height, width)
	if err != nil {
		return nil, err
	}

	a := &Apocalypse{
		obstacles: g,
		humans:    queue.New[grid.Cell](),
		zombies:   queue.New[grid.Cell](),
	}

	for _, cell := range obstacles {
		if err := a.obstacles.SetFull(cell.Row, cell.Col); err != nil {
			return nil, fmt.Errorf("obstacle: %w", err)
		}
	}
	for _, cell := range zombies {
		if err := a.AddZombie(cell.Row, cell.Col); err != nil {
			return nil, fmt.Errorf("zombie: %w", err)
		}
	}
	for _, cell := range humans {
		if err := a.AddHuman(cell.Row, cell.Col); err != nil {
			return nil, fmt.Errorf("human: %w", err)
		}
	}

	return a, nil
}

// Height returns the number of grid rows
func (a *Apocalypse) Height() int {
	return a.obstacles.Height()
}

// Width returns the number of grid columns
func (a *Apocalypse) Width() int {
	return a.obstacles.Width()
}

// IsEmpty reports whether a cell is free of obstacles
func (a *Apocalypse) IsEmpty(row, col int) (bool, error) {
	return a.obstacles.IsEmpty(row, col)
}

// Obstacles lists obstacle cells in row-major order
func (a *Apocalypse) Obstacles() []grid.Cell {
	return a.obstacles.FullCells()
}

// Started reports whether at least one tick has run since construction or the last Clear
func (a *Apocalypse) Started() bool {
	return a.started
}

// AddObstacle marks a cell as an obstacle. Obstacles are frozen once a tick has run.
func (a *Apocalypse) AddObstacle(row, col int) error {
	if a.started {
		return ErrSimulationStarted
	}
	return a.obstacles.SetFull(row, col)
}

// AddHuman appends a human at (row, col)
func (a *Apocalypse) AddHuman(row, col int) error {
	return a.add(a.humans, row, col)
}

// AddZombie appends a zombie at (row, col)
func (a *Apocalypse) AddZombie(row, col int) error {
	return a.add(a.zombies, row, col)
}

// Clear removes every obstacle, human and zombie
func (a *Apocalypse) Clear() {
	a.obstacles.Clear()
	a.humans.Clear()
	a.zombies.Clear()
	a.started = false
}

// NumHumans returns the number of humans
func (a *Apocalypse) NumHumans() int {
	return a.humans.Len()
}

// NumZombies returns the number of zombies
func (a *Apocalypse) NumZombies() int {
	return a.zombies.Len()
}

// Humans yields the human positions as they were when Humans was called
func (a *Apocalypse) Humans() iter.Seq[grid.Cell] {
	return slices.Values(a.humans.Slice())
}

// Zombies yields the zombie positions as they were when Zombies was called
func (a *Apocalypse) Zombies() iter.Seq[grid.Cell] {
	return slices.Values(a.zombies.Slice())
}

// HumanList returns a copy of the human positions in population order
func (a *Apocalypse) HumanList() []grid.Cell {
	return a.humans.Slice()
}

// ZombieList returns a copy of the zombie positions in population order
func (a *Apocalypse) ZombieList() []grid.Cell {
	return a.zombies.Slice()
}

// Caught lists the cells holding at least one human and one zombie, in human order
func (a *Apocalypse) Caught() []grid.Cell {
	zombieCells := make(map[grid.Cell]bool, a.zombies.Len())
	for z := range a.zombies.All() {
		zombieCells[z] = true
	}

	var caught []grid.Cell
	seen := make(map[grid.Cell]bool)
	for h := range a.humans.All() {
		if zombieCells[h] && !seen[h] {
			seen[h] = true
			caught = append(caught, h)
		}
	}
	return caught
}

// Tick advances the simulation by one step: each population moves once,
// against a distance field computed from the other population just before it moves.
func (a *Apocalypse) Tick(order TickOrder) (*TickReport, error) {
	if !order.Valid() {
		return nil, fmt.Errorf("unknown tick order %q", order)
	}
	a.started = true

	report := &TickReport{}
	moveHumans := func() error {
		field, err := a.ComputeDistanceField(Zombie)
		if err != nil {
			return err
		}
		report.HumansMoved, err = a.MoveHumans(field)
		return err
	}
	moveZombies := func() error {
		field, err := a.ComputeDistanceField(Human)
		if err != nil {
			return err
		}
		report.ZombiesMoved, err = a.MoveZombies(field)
		return err
	}

	steps := []func() error{moveHumans, moveZombies}
	if order == ZombiesFirst {
		steps = []func() error{moveZombies, moveHumans}
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	report.Caught = a.Caught()
	return report, nil
}

func (a *Apocalypse) add(population *queue.Queue[grid.Cell], row, col int) error {
	if !a.obstacles.InBounds(row, col) {
		return fmt.Errorf("%w: (%d,%d) outside %dx%d grid", grid.ErrOutOfBounds, row, col, a.Height(), a.Width())
	}
	population.Enqueue(grid.Cell{Row: row, Col: col})
	return nil
}

func (a *Apocalypse) population(entity EntityType) (*queue.Queue[grid.Cell], error) {
	switch entity {
	case Human:
		return a.humans, nil
	case Zombie:
		return a.zombies, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidEntityType, int(entity))
	}
}
