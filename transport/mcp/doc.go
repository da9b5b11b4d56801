// Package mcp exposes the apocalypse simulation as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// the api package and the JSON answer is formatted as text for the agent.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - simulation_state: grid, populations and tick
//   - tick, run_ticks: advance the simulation
//   - reset_simulation, clear_simulation
//   - add_entity: place a human, zombie or obstacle
//   - distance_field: BFS distances seeded by a population
//   - tick_history: paginated past ticks
//   - list_scenarios
//   - simulation_rules: movement rules and grid legend
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp handing the body to GetMCPServer().HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
