// Package engine provides the core logic of the zombie apocalypse simulation.
//
// The engine package implements:
//   - Multi-source breadth-first distance fields over an obstacle grid
//   - Greedy single-step movement for humans (flee) and zombies (pursue)
//   - Scenario loading and validation from JSON or YAML
//   - A Simulation wrapper with tick counting, history and reset
//
// Core Types:
//
// Apocalypse owns the obstacle grid and the two populations. Simulation wraps
// an Apocalypse built from a ScenarioConfig and implements the Engine
// interface used by the service layer.
//
// Usage:
//
//	scenario, err := engine.LoadScenarioConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sim, err := engine.NewSimulation(scenario)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	entry, err := sim.Tick()
//	state := sim.GetState()
//
// Rules:
//
// Each tick, humans look at a distance field seeded by the zombies and step to
// the 8-way neighbor farthest from any zombie. Zombies then look at a field
// seeded by the humans and step to the 4-way neighbor closest to any human.
// Moves only happen on strict improvement; ties go to the first neighbor in
// the fixed neighbor order. Nobody dies: a human and a zombie sharing a cell
// is reported as caught and both keep moving.
package engine
