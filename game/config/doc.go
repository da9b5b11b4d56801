// Package config provides scenario management for the apocalypse simulation.
//
// The config package handles:
//   - Loading scenarios from JSON and YAML files
//   - Caching parsed scenarios
//   - Default scenario selection
//   - Scenario discovery and listing
//
// Scenario Format:
//
// Scenarios live in a single directory as .json, .yaml or .yml files. Each
// scenario defines a grid, either through a character layout ('.' empty,
// '#' obstacle, 'H' human, 'Z' zombie, 'X' both) or explicit cell lists, plus
// the tick order, a bulk run cap and event messages.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	scenario, err := manager.LoadConfig("corridor")
//	defaultScenario := manager.GetDefault()
//	scenarios, err := manager.ListConfigs()
//
// When the directory has no classic scenario the first valid one becomes the
// default, and the built-in engine scenario is used for an empty directory.
package config
