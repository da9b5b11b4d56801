package engine

import "github.com/wricardo/mcp-training/apocalypse/game/grid"

// RenderLayout draws the current state with the scenario legend, one string per row
func RenderLayout(a *Apocalypse) []string {
	height, width := a.Height(), a.Width()
	rows := make([][]byte, height)
	for r := range rows {
		rows[r] = make([]byte, width)
		for c := range rows[r] {
			rows[r][c] = EmptyChar
		}
	}

	for _, cell := range a.Obstacles() {
		rows[cell.Row][cell.Col] = ObstacleChar
	}
	for cell := range a.Zombies() {
		rows[cell.Row][cell.Col] = ZombieChar
	}
	for cell := range a.Humans() {
		if rows[cell.Row][cell.Col] == ZombieChar || rows[cell.Row][cell.Col] == BothChar {
			rows[cell.Row][cell.Col] = BothChar
		} else {
			rows[cell.Row][cell.Col] = HumanChar
		}
	}

	layout := make([]string, height)
	for r, row := range rows {
		layout[r] = string(row)
	}
	return layout
}

// CountOpenCells counts the cells free of obstacles
func CountOpenCells(a *Apocalypse) int {
	return a.Height()*a.Width() - len(a.Obstacles())
}

// ManhattanDistance calculates the Manhattan distance between two cells
func ManhattanDistance(from, to grid.Cell) int {
	dr := from.Row - to.Row
	if dr < 0 {
		dr = -dr
	}
	dc := from.Col - to.Col
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// NearestZombie returns the zombie closest to a cell by Manhattan distance, first one on ties
func NearestZombie(a *Apocalypse, from grid.Cell) (grid.Cell, int, bool) {
	minDistance := -1
	var nearest grid.Cell
	for z := range a.Zombies() {
		if d := ManhattanDistance(from, z); minDistance == -1 || d < minDistance {
			minDistance = d
			nearest = z
		}
	}
	return nearest, minDistance, minDistance >= 0
}

// RunUntilStable ticks a fresh simulation of the scenario until a tick moves
// nobody or maxTicks is reached. It returns the number of ticks run and
// whether the run ended stable.
func RunUntilStable(scenario *ScenarioConfig, maxTicks int) (int, bool, error) {
	sim, err := NewSimulation(scenario)
	if err != nil {
		return 0, false, err
	}
	entries, err := sim.BulkTick(maxTicks)
	if err != nil {
		return len(entries), false, err
	}
	return len(entries), sim.IsStable(), nil
}
