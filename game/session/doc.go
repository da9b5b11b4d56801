// Package session provides session management for the apocalypse simulation.
//
// The session package implements:
//   - Thread-safe in-memory session storage and retrieval
//   - Unique 4-character session ID generation
//   - Session expiration by inactivity
//
// Each session owns its own engine.Simulation built from a scenario, so
// sessions never share populations even when they run the same scenario.
// Nothing is persisted; sessions end with the process.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", "classic", scenario)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//	sessions := manager.List()
package session
