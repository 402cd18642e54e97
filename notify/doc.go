// Package notify pushes configuration-change notifications to WebSocket
// subscribers.
//
// # Overview
//
// Dashboards and edge agents that cache the gateway's configuration
// need to know when a reload lands. The Hub gives them a WebSocket
// endpoint to sit on; after every successful reload the gateway calls
// Broadcast and each subscriber receives a single text frame,
// ConfigUpdated. The frame is a cue, not a payload: clients re-fetch
// whatever configuration they care about over the HTTP API, which keeps
// the notification channel free of versioning concerns.
//
// # Usage
//
//	hub := notify.NewHub(notify.Config{Metrics: registry, Logger: logger})
//	defer hub.Close()
//
//	mux.Handle("/ws/config-updates", hub)
//
//	rel, err := engine.NewReloader(engine.ReloaderConfig{Engine: eng, Notifier: hub})
//
// # Connection health
//
// The hub pings every subscriber on a fixed period and expects a pong
// within the read deadline; connections that miss it, fail a ping, or
// fail a notification send are evicted. Writes to a connection are
// serialized per client because gorilla/websocket forbids concurrent
// writers.
package notify
