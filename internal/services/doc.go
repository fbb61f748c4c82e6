// Package services holds the business logic behind the HTTP handlers.
//
// PlanningService owns the planner state. Every mutation replaces the
// current *planner.State with a new snapshot under a mutex, so readers
// always see a consistent view without holding a lock:
//
//	upload -> filter -> aggregate -> forecast (warehouse or generator) -> merge
//
// RunForecast reads a snapshot, performs the external calls without the lock
// and then commits the result onto whatever state is current at that point.
//
// HealthService reports liveness, readiness and version information.
package services
