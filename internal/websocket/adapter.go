package websocket

import (
	"context"

	"demandplanner/internal/infrastructure"
	"demandplanner/internal/planner"
	"demandplanner/pkg/contracts/domain"
	"demandplanner/pkg/contracts/events"
)

// StateNotifier publishes planner state changes to a hub
type StateNotifier struct {
	hub *Hub
}

// NewStateNotifier creates a notifier for hub
func NewStateNotifier(hub *Hub) *StateNotifier {
	return &StateNotifier{hub: hub}
}

// StateChanged broadcasts a summary of st
func (n *StateNotifier) StateChanged(ctx context.Context, change string, st *planner.State) {
	n.hub.Publish(ctx, events.NewMessage(events.MessageTypeStateChanged,
		infrastructure.GetTraceID(ctx), Summarize(change, st)))
}

// Summarize builds the StateChange payload for st
func Summarize(change string, st *planner.State) events.StateChange {
	records := make(map[domain.RecordKind]int)
	for kind, info := range st.Uploads() {
		records[kind] = info.Records
	}
	sc := events.StateChange{
		Change:    change,
		Version:   st.Version(),
		UpdatedAt: st.UpdatedAt(),
		Records:   records,
		Filter:    st.Filter(),
	}
	if r, ok := st.Result(); ok {
		sc.Source = r.Source
		sc.HasResult = true
	}
	return sc
}
