package mcp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wricardo/mcp-training/apocalypse/game/engine"
	"github.com/wricardo/mcp-training/apocalypse/game/grid"
	"github.com/wricardo/mcp-training/apocalypse/game/service"
)

const simulationRules = `Zombie Apocalypse Simulation - Rules

GRID LEGEND:
  .  empty cell
  #  obstacle (never entered, never crossed)
  H  human
  Z  zombie
  X  a human and a zombie on the same cell (caught)

Coordinates are (row,col) with (0,0) at the top left.

DISTANCE FIELDS:
Before a population moves, a breadth-first search starts from every member
of the opposing population at once and spreads 4-way (up, down, left, right)
around obstacles. Each cell gets its step distance to the nearest seed.
Cells the search never reaches get the sentinel value height*width.

MOVEMENT:
- Humans look at their 8 neighbors (diagonals included) and step to the one
  with the LARGEST distance from zombies, but only if it is strictly larger
  than where they stand.
- Zombies look at their 4 neighbors and step to the one with the SMALLEST
  distance to humans, but only if it is strictly smaller.
- Ties keep the first neighbor in scan order: up, down, left, right, then
  up-left, up-right, down-left, down-right for humans.
- Every member of a population decides from the same field, so the moves of
  one population happen all at once. Several entities may share a cell.
- A tick moves both populations, humans first unless the scenario says
  zombies_first.

CAUGHT AND STABLE:
- A human on the same cell as a zombie is reported as caught. Nothing is
  removed; the simulation keeps going.
- A tick in which nobody moves makes the simulation stable. run_ticks stops
  there.

LIMITS:
- run_ticks executes at most the scenario's max_ticks, and never more than 500.
- Obstacles can only be added before the first tick; clear_simulation allows
  placing them again.

TOOLS IN ORDER:
1. list_scenarios, then create_session
2. simulation_state to look at the grid
3. tick or run_ticks to advance; distance_field to see why entities moved
4. tick_history to review past ticks`

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	fmt.Fprintf(&b, "Scenario: %s\n", session.ScenarioID)
	fmt.Fprintf(&b, "Created: %s\n", session.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Last Accessed: %s\n\n", session.LastAccessedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(formatSimulationState(session.SimulationState))
	return b.String()
}

func formatSessionList(count int, sessions []service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", count)
	for _, s := range sessions {
		line := fmt.Sprintf("- %s (Scenario: %s, Created: %s", s.ID, s.ScenarioID, s.CreatedAt.Format("15:04:05"))
		if s.SimulationState != nil {
			line += fmt.Sprintf(", Tick: %d, Humans: %d, Zombies: %d",
				s.SimulationState.Tick, s.SimulationState.NumHumans, s.SimulationState.NumZombies)
		}
		b.WriteString(line + ")\n")
	}
	return b.String()
}

func formatSimulationState(state *engine.SimulationState) string {
	if state == nil {
		return "No simulation state"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scenario: %s\n", state.ScenarioName)
	fmt.Fprintf(&b, "Grid: %dx%d\n", state.Height, state.Width)
	fmt.Fprintf(&b, "Tick: %d (total %d)\n", state.Tick, state.TotalTicks)
	fmt.Fprintf(&b, "Humans: %d  Zombies: %d  Obstacles: %d\n", state.NumHumans, state.NumZombies, len(state.Obstacles))

	switch {
	case len(state.Caught) > 0:
		fmt.Fprintf(&b, "🧟 CAUGHT at %s\n", formatCells(state.Caught))
	case state.Stable:
		b.WriteString("⏸ STABLE - nobody moved on the last tick\n")
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}

	if len(state.Layout) > 0 {
		b.WriteString("\nGrid:\n")
		for _, row := range state.Layout {
			b.WriteString(row + "\n")
		}
	}
	return b.String()
}

func formatTickResult(result *service.TickResult) string {
	var b strings.Builder
	entry := result.Tick
	fmt.Fprintf(&b, "Tick %d: %d human(s) moved, %d zombie(s) moved\n", entry.Tick, entry.HumansMoved, entry.ZombiesMoved)
	if len(entry.Caught) > 0 {
		fmt.Fprintf(&b, "Caught: %s\n", formatCells(entry.Caught))
	}
	b.WriteString("\n")
	b.WriteString(formatSimulationState(result.SimulationState))
	return b.String()
}

func formatRunResult(sessionID string, result *service.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s: executed %d/%d tick(s)\n", sessionID, result.TicksExecuted, result.RequestedTicks)
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to the limit of %d ticks\n", result.Limit)
	}
	switch result.StopReasonCode {
	case service.StopReasonStable:
		fmt.Fprintf(&b, "Stopped: stable on tick %d\n", result.StoppedOnTick)
	case service.StopReasonLimit:
		fmt.Fprintf(&b, "Stopped: limit reached on tick %d\n", result.StoppedOnTick)
	}
	fmt.Fprintf(&b, "Moves: %d human, %d zombie\n", result.HumansMoved, result.ZombiesMoved)
	fmt.Fprintf(&b, "Humans: %s -> %s\n", formatCells(result.StartHumans), formatCells(result.EndHumans))
	fmt.Fprintf(&b, "Zombies: %s -> %s\n", formatCells(result.StartZombies), formatCells(result.EndZombies))

	if len(result.Ticks) > 0 {
		b.WriteString("\nTicks:\n")
		for _, entry := range result.Ticks {
			b.WriteString(formatTickLine(entry) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(formatSimulationState(result.SimulationState))
	return b.String()
}

// formatDistanceField renders one row per line; unreachable cells show as "-"
func formatDistanceField(field *engine.DistanceField) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Distance field from %s (%dx%d)\n", field.Source, field.Height, field.Width)

	width := len(strconv.Itoa(field.Unreachable))
	reachable := 0
	for _, row := range field.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == field.Unreachable {
				cells[i] = fmt.Sprintf("%*s", width, "-")
				continue
			}
			reachable++
			cells[i] = fmt.Sprintf("%*d", width, v)
		}
		b.WriteString(strings.Join(cells, " ") + "\n")
	}
	fmt.Fprintf(&b, "\nReachable cells: %d/%d (unreachable value %d)\n", reachable, field.Height*field.Width, field.Unreachable)
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tick History (Page %d/%d, Total: %d ticks)\n\n", history.Page, history.TotalPages, history.TotalTicks)
	for _, entry := range history.Ticks {
		b.WriteString(formatTickLine(entry) + "\n")
	}
	if history.HasNext {
		fmt.Fprintf(&b, "\nMore ticks on page %d\n", history.Page+1)
	}
	return b.String()
}

func formatTickLine(entry engine.TickHistoryEntry) string {
	line := fmt.Sprintf("#%d tick %d: humans moved %d, zombies moved %d",
		entry.Sequence, entry.Tick, entry.HumansMoved, entry.ZombiesMoved)
	if len(entry.Caught) > 0 {
		line += ", caught " + formatCells(entry.Caught)
	}
	return line
}

func formatScenarios(scenarios []service.ScenarioInfo) string {
	var b strings.Builder
	b.WriteString("Available Scenarios:\n\n")
	for _, s := range scenarios {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Grid: %dx%d, Humans: %d, Zombies: %d, Obstacles: %d, Order: %s\n\n",
			s.ScenarioID, s.Name, s.Description, s.Height, s.Width, s.NumHumans, s.NumZombies, s.NumObstacles, s.TickOrder)
	}
	return b.String()
}

func formatCells(cells []grid.Cell) string {
	if len(cells) == 0 {
		return "none"
	}
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = cell.String()
	}
	return strings.Join(parts, " ")
}
