package engine

import (
	"fmt"

	"github.com/wricardo/mcp-training/apocalypse/game/grid"
	"github.com/wricardo/mcp-training/apocalypse/game/queue"
)

// DistanceField holds, for every cell, the 4-way hop count through empty cells
// to the nearest member of the Source population. Cells no seed can reach keep
// the Unreachable sentinel (height*width).
type DistanceField struct {
	Source      EntityType `json:"source"`
	Height      int        `json:"height"`
	Width       int        `json:"width"`
	Unreachable int        `json:"unreachable"`
	Values      [][]int    `json:"values"`
}

// newDistanceField allocates a field with every cell set to the sentinel
func newDistanceField(source EntityType, height, width int) *DistanceField {
	sentinel := height * width
	values := make([][]int, height)
	for row := range values {
		values[row] = make([]int, width)
		for col := range values[row] {
			values[row][col] = sentinel
		}
	}
	return &DistanceField{
		Source:      source,
		Height:      height,
		Width:       width,
		Unreachable: sentinel,
		Values:      values,
	}
}

// At returns the distance stored for a cell
func (f *DistanceField) At(row, col int) int {
	return f.Values[row][col]
}

// Reachable reports whether a cell is connected to at least one seed
func (f *DistanceField) Reachable(row, col int) bool {
	return f.Values[row][col] < f.Unreachable
}

// CountReachable returns the number of cells connected to a seed
func (f *DistanceField) CountReachable() int {
	count := 0
	for _, row := range f.Values {
		for _, d := range row {
			if d < f.Unreachable {
				count++
			}
		}
	}
	return count
}

// MaxReachable returns the largest finite distance, or -1 when nothing is reachable
func (f *DistanceField) MaxReachable() int {
	best := -1
	for _, row := range f.Values {
		for _, d := range row {
			if d < f.Unreachable && d > best {
				best = d
			}
		}
	}
	return best
}

// ComputeDistanceField runs a multi-source breadth-first search seeded from
// every member of the given population. Paths use 4-way moves through cells
// that are empty in the obstacle grid.
func (a *Apocalypse) ComputeDistanceField(entity EntityType) (*DistanceField, error) {
	seeds, err := a.population(entity)
	if err != nil {
		return nil, err
	}

	height, width := a.Height(), a.Width()
	visited, err := grid.New(height, width)
	if err != nil {
		return nil, err
	}
	field := newDistanceField(entity, height, width)

	boundary := queue.New[grid.Cell]()
	for cell := range seeds.All() {
		boundary.Enqueue(cell)
	}
	for cell := range boundary.All() {
		if err := visited.SetFull(cell.Row, cell.Col); err != nil {
			return nil, fmt.Errorf("seed %v: %w", cell, err)
		}
		field.Values[cell.Row][cell.Col] = 0
	}

	for boundary.Len() > 0 {
		current, err := boundary.Dequeue()
		if err != nil {
			return nil, err
		}

		for _, neighbor := range visited.FourNeighbors(current.Row, current.Col) {
			unvisited, err := visited.IsEmpty(neighbor.Row, neighbor.Col)
			if err != nil {
				return nil, err
			}
			open, err := a.obstacles.IsEmpty(neighbor.Row, neighbor.Col)
			if err != nil {
				return nil, err
			}
			if !unvisited || !open {
				continue
			}

			if err := visited.SetFull(neighbor.Row, neighbor.Col); err != nil {
				return nil, err
			}
			boundary.Enqueue(neighbor)
			field.Values[neighbor.Row][neighbor.Col] = field.Values[current.Row][current.Col] + 1
		}
	}

	return field, nil
}
