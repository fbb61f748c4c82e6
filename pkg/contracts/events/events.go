// Package events defines the messages pushed to live planner clients
package events

import (
	"time"

	"github.com/google/uuid"

	"demandplanner/pkg/contracts/domain"
)

// MessageType defines the type of a pushed message
type MessageType string

const (
	// MessageTypeConnect is sent once to each new client
	MessageTypeConnect MessageType = "connect"
	// MessageTypeStateChanged announces a committed planner state
	MessageTypeStateChanged MessageType = "state:changed"
)

// Message is the envelope of every pushed message
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// NewMessage stamps data with a fresh id and the current time
func NewMessage(t MessageType, traceID string, data interface{}) Message {
	return Message{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
		Data:      data,
	}
}

// Connected is the payload of MessageTypeConnect
type Connected struct {
	ClientID string `json:"client_id"`
}

// StateChange summarizes a planner state without its record payloads.
// Clients refetch what they display when Version moves.
type StateChange struct {
	Change    string                    `json:"change"`
	Version   uint64                    `json:"version"`
	UpdatedAt time.Time                 `json:"updated_at"`
	Records   map[domain.RecordKind]int `json:"records"`
	Filter    domain.SegmentFilter      `json:"filter"`
	Source    domain.DataSource         `json:"source,omitempty"`
	HasResult bool                      `json:"has_result"`
}
