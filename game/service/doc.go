// Package service provides the business logic layer for the apocalypse simulation.
//
// The service package implements:
//   - Multi-session simulation management
//   - Single ticks and capped bulk runs with early stop on stability
//   - Editing a session's grid and populations
//   - Paginated tick history
//   - Scenario listing, loading and saving
//
// Core Interfaces:
//
// SimulationService is the main interface used by the transports.
// SessionManager stores sessions and ConfigManager loads scenarios; both are
// implemented outside this package (see game/session and game/config).
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the engine. It serializes every operation with a single mutex, so a
// simulation is only ever driven by one goroutine at a time.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, err := config.NewManager("configs")
//	svc := service.NewSimulationService(sessionMgr, configMgr)
//
//	info, err := svc.CreateSession(ctx, "corridor")
//	result, err := svc.RunTicks(ctx, info.ID, 50, false)
package service
