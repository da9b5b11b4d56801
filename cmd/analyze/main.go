// Command analyze prints quick, human-readable heuristics about scenario
// files. For each scenario it summarizes dimensions and populations, counts
// the cells each distance field reaches, flags open cells walled off from
// both populations, and reports the tick at which a headless run goes stable.
//
// Usage:
//
//	analyze [dir-or-file ...]
//
// With no arguments the configs directory is analyzed.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/apocalypse/game/engine"
)

// Analysis is the summary of one scenario
type Analysis struct {
	Name        string
	Height      int
	Width       int
	Humans      int
	Zombies     int
	Obstacles   int
	OpenCells   int
	Fields      map[engine.EntityType]FieldSummary
	Isolated    int // open cells neither field reaches
	StableTick  int
	Stable      bool
	NearestGaps []string
}

// FieldSummary describes one distance field
type FieldSummary struct {
	Reachable   int
	Unreachable int
	Farthest    int
}

func main() {
	paths := os.Args[1:]
	if len(paths) == 0 {
		paths = []string{"configs"}
	}

	files, err := collectFiles(paths)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to collect scenario files")
	}

	failed := 0
	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", file)
		if err := analyzeFile(os.Stdout, file); err != nil {
			fmt.Printf("Error: %v\n", err)
			failed++
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// collectFiles expands directories into their scenario files
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(entry.Name())) {
			case ".json", ".yaml", ".yml":
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func analyzeFile(w io.Writer, path string) error {
	scenario, err := engine.LoadScenarioConfig(path)
	if err != nil {
		return err
	}

	analysis, err := analyzeScenario(scenario)
	if err != nil {
		return err
	}

	printAnalysis(w, analysis)
	return nil
}

// analyzeScenario computes the analysis of a validated scenario
func analyzeScenario(scenario *engine.ScenarioConfig) (*Analysis, error) {
	sim, err := engine.NewSimulation(scenario)
	if err != nil {
		return nil, err
	}
	world := sim.World()

	analysis := &Analysis{
		Name:      scenario.Name,
		Height:    world.Height(),
		Width:     world.Width(),
		Humans:    world.NumHumans(),
		Zombies:   world.NumZombies(),
		Obstacles: len(world.Obstacles()),
		OpenCells: engine.CountOpenCells(world),
		Fields:    make(map[engine.EntityType]FieldSummary),
	}

	humanField, err := world.ComputeDistanceField(engine.Human)
	if err != nil {
		return nil, err
	}
	zombieField, err := world.ComputeDistanceField(engine.Zombie)
	if err != nil {
		return nil, err
	}

	for _, field := range []*engine.DistanceField{humanField, zombieField} {
		reachable := field.CountReachable()
		analysis.Fields[field.Source] = FieldSummary{
			Reachable:   reachable,
			Unreachable: analysis.OpenCells - reachable,
			Farthest:    field.MaxReachable(),
		}
	}

	for row := 0; row < analysis.Height; row++ {
		for col := 0; col < analysis.Width; col++ {
			empty, _ := world.IsEmpty(row, col)
			if empty && !humanField.Reachable(row, col) && !zombieField.Reachable(row, col) {
				analysis.Isolated++
			}
		}
	}

	// Walls make the walking distance longer than the straight-line one
	for _, human := range world.HumanList() {
		zombie, manhattan, ok := engine.NearestZombie(world, human)
		if !ok {
			break
		}
		walk := zombieField.At(human.Row, human.Col)
		if !zombieField.Reachable(human.Row, human.Col) {
			analysis.NearestGaps = append(analysis.NearestGaps,
				fmt.Sprintf("human %s cannot be reached (nearest zombie %s is %d cells away)", human, zombie, manhattan))
		} else if walk > manhattan {
			analysis.NearestGaps = append(analysis.NearestGaps,
				fmt.Sprintf("human %s is %d steps from the nearest zombie, %d in a straight line", human, walk, manhattan))
		}
	}

	limit := scenario.MaxTicks
	if limit <= 0 || limit > engine.MaxBulkTicks {
		limit = engine.MaxBulkTicks
	}
	analysis.StableTick, analysis.Stable, err = engine.RunUntilStable(scenario, limit)
	if err != nil {
		return nil, err
	}

	return analysis, nil
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.Height, a.Width)
	fmt.Fprintf(w, "Humans: %d, Zombies: %d, Obstacles: %d\n", a.Humans, a.Zombies, a.Obstacles)
	fmt.Fprintf(w, "Open Cells: %d\n", a.OpenCells)

	for _, entity := range []engine.EntityType{engine.Human, engine.Zombie} {
		f := a.Fields[entity]
		fmt.Fprintf(w, "Distance from %ss: %d reachable, %d unreachable", entity, f.Reachable, f.Unreachable)
		if f.Farthest >= 0 {
			fmt.Fprintf(w, ", farthest %d", f.Farthest)
		}
		fmt.Fprintln(w)
	}

	if a.Isolated > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: %d open cells are walled off from both populations\n", a.Isolated)
	}
	for i, gap := range a.NearestGaps {
		if i == 5 {
			fmt.Fprintf(w, "   ... and %d more\n", len(a.NearestGaps)-5)
			break
		}
		fmt.Fprintf(w, "   %s\n", gap)
	}

	if a.Stable {
		fmt.Fprintf(w, "✅ Stable after %d ticks\n", a.StableTick)
	} else {
		fmt.Fprintf(w, "⏳ Still moving after %d ticks\n", a.StableTick)
	}
}
