package engine

import (
	"fmt"

	"github.com/wricardo/mcp-training/apocalypse/game/grid"
	"github.com/wricardo/mcp-training/apocalypse/game/queue"
)

// neighborFunc lists the candidate cells around (row, col) in a fixed order
type neighborFunc func(g *grid.Grid, row, col int) []grid.Cell

// betterFunc reports whether candidate strictly beats current
type betterFunc func(candidate, current int) bool

// MoveHumans moves every human one step away from the zombies. Each human
// inspects its 8-way neighborhood, in the order up, down, left, right,
// up-left, up-right, down-left, down-right, and steps onto the first open
// cell whose distance is strictly greater than every value seen before it,
// starting from the distance of its own cell. A human that finds no better
// cell stays put. Decisions all read the same field and the population is
// rewritten only after every human has decided.
//
// field must be a zombie distance field of matching dimensions. It returns
// the number of humans that changed cell.
func (a *Apocalypse) MoveHumans(field *DistanceField) (int, error) {
	return a.move(Human, field, (*grid.Grid).EightNeighbors, func(candidate, current int) bool {
		return candidate > current
	})
}

// MoveZombies moves every zombie one 4-way step toward the humans, taking
// the first open neighbor (up, down, left, right) whose distance is strictly
// smaller than anything seen so far, starting from its own cell. field must
// be a human distance field of matching dimensions. It returns the number of
// zombies that changed cell.
func (a *Apocalypse) MoveZombies(field *DistanceField) (int, error) {
	return a.move(Zombie, field, (*grid.Grid).FourNeighbors, func(candidate, current int) bool {
		return candidate < current
	})
}

func (a *Apocalypse) move(mover EntityType, field *DistanceField, neighbors neighborFunc, better betterFunc) (int, error) {
	if err := a.checkField(mover.Opponent(), field); err != nil {
		return 0, err
	}
	population, err := a.population(mover)
	if err != nil {
		return 0, err
	}

	// Decide every move against the unchanged field and population
	targets := make([]grid.Cell, 0, population.Len())
	moved := 0
	for cell := range population.All() {
		target, err := a.bestNeighbor(cell, field, neighbors, better)
		if err != nil {
			return 0, err
		}
		if target != cell {
			moved++
		}
		targets = append(targets, target)
	}

	commit(population, targets)
	return moved, nil
}

// bestNeighbor returns the cell an entity at from should step to, or from itself
func (a *Apocalypse) bestNeighbor(from grid.Cell, field *DistanceField, neighbors neighborFunc, better betterFunc) (grid.Cell, error) {
	best := from
	bestDistance := field.At(from.Row, from.Col)

	for _, candidate := range neighbors(a.obstacles, from.Row, from.Col) {
		open, err := a.obstacles.IsEmpty(candidate.Row, candidate.Col)
		if err != nil {
			return from, err
		}
		if !open {
			continue
		}
		if d := field.At(candidate.Row, candidate.Col); better(d, bestDistance) {
			best = candidate
			bestDistance = d
		}
	}
	return best, nil
}

// commit replaces every member of the population with its decided target,
// keeping population order
func commit(population *queue.Queue[grid.Cell], targets []grid.Cell) {
	for _, target := range targets {
		// Dequeue cannot fail: targets has one entry per member
		_, _ = population.Dequeue()
		population.Enqueue(target)
	}
}

func (a *Apocalypse) checkField(source EntityType, field *DistanceField) error {
	if field == nil {
		return fmt.Errorf("%w: nil field", ErrFieldMismatch)
	}
	if field.Source != source {
		return fmt.Errorf("%w: expected %s field, got %s", ErrFieldMismatch, source, field.Source)
	}
	if field.Height != a.Height() || field.Width != a.Width() || len(field.Values) != field.Height {
		return fmt.Errorf("%w: field is %dx%d, grid is %dx%d", ErrFieldMismatch, field.Height, field.Width, a.Height(), a.Width())
	}
	for row, values := range field.Values {
		if len(values) != field.Width {
			return fmt.Errorf("%w: row %d has %d columns", ErrFieldMismatch, row, len(values))
		}
	}
	return nil
}
