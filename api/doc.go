// Package api provides HTTP REST API handlers for the apocalypse simulation.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session {scenario}
//   - GET /api/sessions - List sessions (sort=created|accessed, order=asc|desc, limit)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Simulation:
//   - GET /api/sessions/{id}/state - Current simulation state
//   - POST /api/sessions/{id}/tick - Advance one tick {reset}
//   - POST /api/sessions/{id}/run - Run up to N ticks {ticks, reset}
//   - POST /api/sessions/{id}/reset - Restore the scenario populations
//   - POST /api/sessions/{id}/clear - Empty the grid
//   - POST /api/sessions/{id}/entities - Add {type: human|zombie|obstacle, row, col}
//   - GET /api/sessions/{id}/distance-field?entity=human|zombie
//   - GET /api/sessions/{id}/history?page&limit&order
//
// Scenarios:
//   - GET /api/scenarios - List scenario files
//   - POST /api/scenarios - Save a scenario (?format=yaml for YAML)
//   - GET /api/scenarios/{name} - Get one scenario
//
// Other:
//   - GET /ws?session={id} - WebSocket observer
//   - GET /health
//
// Every state-changing call broadcasts the new simulation state to the
// session's WebSocket observers.
//
// Error Handling:
//
// Errors are returned as JSON with a status derived from the error chain:
//
//	{"error": "cannot add human at (9,9): cell out of bounds: ..."}
//
// 400 for bad input and out-of-bounds cells, 404 for unknown sessions and
// scenarios, 409 for obstacles added after the first tick, 500 otherwise.
package api
