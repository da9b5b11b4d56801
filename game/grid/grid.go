package grid

import (
	"errors"
	"fmt"
)

// State is the occupancy of a single cell
type State uint8

const (
	Empty State = iota
	Full
)

var (
	ErrOutOfBounds       = errors.New("cell out of bounds")
	ErrInvalidDimensions = errors.New("grid dimensions must be positive")
)

// Cell is a 0-indexed (row, col) coordinate
type Cell struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// offset is a relative move from a cell
type offset struct {
	dRow, dCol int
}

var (
	fourOffsets = []offset{
		{-1, 0}, // up
		{1, 0},  // down
		{0, -1}, // left
		{0, 1},  // right
	}

	eightOffsets = []offset{
		{-1, 0},  // up
		{1, 0},   // down
		{0, -1},  // left
		{0, 1},   // right
		{-1, -1}, // up-left
		{-1, 1},  // up-right
		{1, -1},  // down-left
		{1, 1},   // down-right
	}
)

// Grid is a rectangular matrix of Empty/Full cells stored in row-major order
type Grid struct {
	height int
	width  int
	cells  []State
}

// New creates a grid of the given size with every cell Empty
func New(height, width int) (*Grid, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, height, width)
	}
	return &Grid{
		height: height,
		width:  width,
		cells:  make([]State, height*width),
	}, nil
}

// Height returns the number of rows
func (g *Grid) Height() int {
	return g.height
}

// Width returns the number of columns
func (g *Grid) Width() int {
	return g.width
}

// Size returns the number of cells
func (g *Grid) Size() int {
	return g.height * g.width
}

// InBounds reports whether (row, col) lies inside the grid
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.height && col >= 0 && col < g.width
}

// SetFull marks a cell as occupied
func (g *Grid) SetFull(row, col int) error {
	return g.set(row, col, Full)
}

// SetEmpty marks a cell as free
func (g *Grid) SetEmpty(row, col int) error {
	return g.set(row, col, Empty)
}

// IsEmpty reports whether a cell is free
func (g *Grid) IsEmpty(row, col int) (bool, error) {
	if !g.InBounds(row, col) {
		return false, g.boundsError(row, col)
	}
	return g.cells[g.index(row, col)] == Empty, nil
}

// Clear resets every cell to Empty
func (g *Grid) Clear() {
	clear(g.cells)
}

// FourNeighbors returns the orthogonal neighbors of a cell that lie inside the grid.
// A coordinate outside the grid has no neighbors.
func (g *Grid) FourNeighbors(row, col int) []Cell {
	return g.neighbors(row, col, fourOffsets)
}

// EightNeighbors returns the orthogonal and diagonal neighbors of a cell that lie inside the grid.
// The first entries are always the FourNeighbors result in the same order.
func (g *Grid) EightNeighbors(row, col int) []Cell {
	return g.neighbors(row, col, eightOffsets)
}

// FullCells lists occupied cells in row-major order
func (g *Grid) FullCells() []Cell {
	var full []Cell
	for i, state := range g.cells {
		if state == Full {
			full = append(full, Cell{Row: i / g.width, Col: i % g.width})
		}
	}
	return full
}

// Clone returns an independent copy of the grid
func (g *Grid) Clone() *Grid {
	cells := make([]State, len(g.cells))
	copy(cells, g.cells)
	return &Grid{height: g.height, width: g.width, cells: cells}
}

func (g *Grid) neighbors(row, col int, offsets []offset) []Cell {
	if !g.InBounds(row, col) {
		return nil
	}
	result := make([]Cell, 0, len(offsets))
	for _, o := range offsets {
		r, c := row+o.dRow, col+o.dCol
		if g.InBounds(r, c) {
			result = append(result, Cell{Row: r, Col: c})
		}
	}
	return result
}

func (g *Grid) set(row, col int, state State) error {
	if !g.InBounds(row, col) {
		return g.boundsError(row, col)
	}
	g.cells[g.index(row, col)] = state
	return nil
}

func (g *Grid) index(row, col int) int {
	return row*g.width + col
}

func (g *Grid) boundsError(row, col int) error {
	return fmt.Errorf("%w: (%d,%d) outside %dx%d grid", ErrOutOfBounds, row, col, g.height, g.width)
}
