package domain

import "time"

// Event types for WebSocket and NATS notifications
const (
	EventServerUpdate  = "server_update"
	EventServerOffline = "server_offline"
)

// Event represents a real-time event for broadcast
type Event struct {
	Type      string      `json:"event"`
	Server    string      `json:"server"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// OfflineEvent is sent when a poll produced no usable snapshot
type OfflineEvent struct {
	Error string `json:"error"`
}

// NewStatusEvent wraps a poll result. A nil server or non-nil err yields
// an offline event.
func NewStatusEvent(serverName string, srv *Server, err error, at time.Time) Event {
	if err != nil || srv == nil {
		msg := "no data"
		if err != nil {
			msg = err.Error()
		}
		return Event{
			Type:      EventServerOffline,
			Server:    serverName,
			Timestamp: at.UTC(),
			Data:      OfflineEvent{Error: msg},
		}
	}
	return Event{
		Type:      EventServerUpdate,
		Server:    serverName,
		Timestamp: at.UTC(),
		Data:      srv.Status(),
	}
}
