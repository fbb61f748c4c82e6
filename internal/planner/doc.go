// Package planner holds the application state of the demand planner as an
// immutable snapshot. Each stage of the workflow (loading uploads, choosing
// a segment, adjusting drivers, storing a forecast run) derives a new State
// from the previous one.
package planner
