package network

import (
	"context"

	"lifeworld/server/logging"
)

const (
	// EventClientConnected is emitted when a websocket session is established.
	EventClientConnected logging.EventType = "network.client_connected"
	// EventClientDisconnected is emitted when a websocket session ends.
	EventClientDisconnected logging.EventType = "network.client_disconnected"
	// EventUpdateRejected is emitted when a cell update fails validation.
	EventUpdateRejected logging.EventType = "network.update_rejected"
)

// ClientConnectedPayload captures the remote address of a new session.
type ClientConnectedPayload struct {
	RemoteAddr string `json:"remoteAddr"`
}

// ClientDisconnectedPayload captures why a session ended.
type ClientDisconnectedPayload struct {
	Reason string `json:"reason"`
}

// UpdateRejectedPayload captures the validation failure.
type UpdateRejectedPayload struct {
	Code  string `json:"code"`
	Index int    `json:"index"`
}

// ClientConnected publishes a connection event.
func ClientConnected(ctx context.Context, pub logging.Publisher, generation uint64, client logging.EntityRef, payload ClientConnectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:       EventClientConnected,
		Generation: generation,
		Actor:      client,
		Severity:   logging.SeverityInfo,
		Category:   logging.CategoryNetwork,
		Payload:    payload,
		Extra:      extra,
	})
}

// ClientDisconnected publishes a disconnection event.
func ClientDisconnected(ctx context.Context, pub logging.Publisher, generation uint64, client logging.EntityRef, payload ClientDisconnectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:       EventClientDisconnected,
		Generation: generation,
		Actor:      client,
		Severity:   logging.SeverityInfo,
		Category:   logging.CategoryNetwork,
		Payload:    payload,
		Extra:      extra,
	})
}

// UpdateRejected publishes a warning for a rejected cell update.
func UpdateRejected(ctx context.Context, pub logging.Publisher, generation uint64, client logging.EntityRef, payload UpdateRejectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:       EventUpdateRejected,
		Generation: generation,
		Actor:      client,
		Severity:   logging.SeverityWarn,
		Category:   logging.CategoryNetwork,
		Payload:    payload,
		Extra:      extra,
	})
}
