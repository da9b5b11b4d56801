// Package websocket broadcasts simulation state to read-only observers.
//
// Observers connect with a session ID and receive a JSON message after every
// state-changing call on that session:
//
//	{"session_id": "ab12", "event": "state_update", "simulation_state": {...}}
//
// Architecture:
//
// A central Hub owns the registry of observers in its Run goroutine; every
// other goroutine talks to it through channels. Each connection has a read
// pump, which only detects disconnects, and a write pump, which delivers
// queued messages one frame at a time and keeps the connection alive with pings.
// Broadcasting never blocks the caller: when the hub falls behind, messages
// are dropped and an observer whose buffer is full is disconnected.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
//	hub.BroadcastToSession(sessionID, sim.GetState())
package websocket
