// Command validate provides a small CLI that validates scenario files
// (.json, .yaml, .yml) in the ../configs directory, or in the directory given
// as the first argument. It checks:
//   - the file decodes and carries only known fields
//   - dimensions, layout rows and legend characters agree
//   - every listed entity is inside the grid and off the obstacles
//   - tick_order and max_ticks are allowed values
//
// It also warns about scenarios that load but cannot do much: an empty
// population, or humans no zombie can ever reach.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/apocalypse/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// Errors holds the problems that make the file invalid. Notes holds
// informational lines (prefixed with ✓) and warnings (prefixed with ⚠).
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

// validateConfig loads and validates a single scenario file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	scenario, err := engine.LoadScenarioConfig(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	sim, err := engine.NewSimulation(scenario)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to build simulation: %v", err))
		return result
	}
	world := sim.World()

	result.Notes = append(result.Notes,
		fmt.Sprintf("✓ Name: %s", scenario.Name),
		fmt.Sprintf("✓ Grid: %dx%d", world.Height(), world.Width()),
		fmt.Sprintf("✓ Humans: %d, Zombies: %d, Obstacles: %d", world.NumHumans(), world.NumZombies(), len(world.Obstacles())),
		fmt.Sprintf("✓ Tick order: %s", scenario.TickOrder),
	)
	if scenario.MaxTicks > 0 {
		result.Notes = append(result.Notes, fmt.Sprintf("✓ Max ticks: %d", scenario.MaxTicks))
	}

	warnings, err := checkReachability(world)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Reachability check failed: %v", err))
		return result
	}
	result.Notes = append(result.Notes, warnings...)

	return result
}

// checkReachability reports humans that no zombie can walk to, using the
// same 4-way distance field the zombies move by.
func checkReachability(world *engine.Apocalypse) ([]string, error) {
	var warnings []string
	if world.NumHumans() == 0 {
		warnings = append(warnings, "⚠ No humans: zombies will never move")
	}
	if world.NumZombies() == 0 {
		warnings = append(warnings, "⚠ No zombies: humans will never move")
	}
	if len(warnings) > 0 {
		return warnings, nil
	}

	field, err := world.ComputeDistanceField(engine.Zombie)
	if err != nil {
		return nil, err
	}

	var unreachable []string
	for _, human := range world.HumanList() {
		if !field.Reachable(human.Row, human.Col) {
			unreachable = append(unreachable, human.String())
		}
	}
	if len(unreachable) > 0 {
		warnings = append(warnings, fmt.Sprintf("⚠ %d/%d humans unreachable by zombies: %s",
			len(unreachable), world.NumHumans(), strings.Join(unreachable, " ")))
	} else {
		warnings = append(warnings, fmt.Sprintf("✓ Reachability: all %d humans reachable by zombies", world.NumHumans()))
	}
	return warnings, nil
}

// findConfigs lists the scenario files of a directory in name order
func findConfigs(configDir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(configDir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// main validates each scenario file, printing a concise report and exiting
// with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := findConfigs(configDir)
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No scenario files found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, note := range result.Notes {
				fmt.Println("  " + note)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All scenarios are valid!")
	} else {
		fmt.Println("❌ Some scenarios have errors")
		os.Exit(1)
	}
}
