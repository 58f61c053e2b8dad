// Package api implements the HTTP REST API and WebSocket server for the
// Saphari hub.
//
// This package provides:
//   - REST endpoints for devices, telemetry and per-scope dashboards
//   - Widget value resolution and widget commands
//   - A WebSocket hub that pushes device, telemetry and event updates
//   - Middleware (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server sits between user interfaces and the router. Telemetry flows
// from MQTT through the router into the cache, and the Hub, registered as a
// router observer, broadcasts each change to subscribed WebSocket clients.
// Commands flow the other way: a widget's binding is resolved into a
// command message and published on the device's command topic.
//
// # Graceful Degradation
//
// The server runs without a broker connection. Reads and WebSocket
// subscriptions keep working; widget commands fail with 503 and are never
// queued.
package api
