// Package app wires the demand planner together and runs its HTTP server.
//
// NewApplication loads nothing itself; it receives a resolved *config.Config
// and builds, in order:
//
//	1. the JSON logger
//	2. resolved data, reports and logs directories
//	3. OpenTelemetry tracing and Prometheus metrics
//	4. the forecast generator and the warehouse client
//	5. the report archive and the websocket hub
//	6. the planning and health services
//	7. the chi router with its middleware chain
//
// Run serves until its context is cancelled and then shuts the server down
// within Server.ShutdownTimeout.
package app
