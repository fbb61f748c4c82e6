// Package websocket pushes planner state changes to connected browsers.
//
// A Hub owns the client set and fans out events.Message values published
// through it. Handler upgrades /api/events requests into Clients,
// and StateNotifier turns PlanningService state changes into
// events.MessageTypeStateChanged messages. Payloads carry versions and
// counts only; clients refetch the data they show.
package websocket
