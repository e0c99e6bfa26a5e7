package ws

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"lifeworld/server/internal/net/proto"
	"lifeworld/server/internal/sim"
	"lifeworld/server/internal/telemetry"
	"lifeworld/server/logging"
	"lifeworld/server/logging/network"
)

// HubConfig carries the collaborators shared by every session.
type HubConfig struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
}

// Hub tracks connected sessions and fans world notifications out to them.
// It implements sim.Observer.
type Hub struct {
	logger    telemetry.Logger
	publisher logging.Publisher
	metrics   telemetry.Metrics

	mu          sync.Mutex
	subscribers map[string]*session
	nextID      atomic.Uint64
}

var _ sim.Observer = (*Hub)(nil)

// NewHub constructs an empty hub.
func NewHub(cfg HubConfig) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.NopLogger()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.WrapMetrics(nil)
	}
	return &Hub{
		logger:      cfg.Logger,
		publisher:   cfg.Publisher,
		metrics:     cfg.Metrics,
		subscribers: make(map[string]*session),
	}
}

// Subscribe registers conn and returns its session.
func (h *Hub) Subscribe(conn *websocket.Conn, remoteAddr string) *session {
	id := "client-" + strconv.FormatUint(h.nextID.Add(1), 10)
	sub := newSession(id, conn, remoteAddr)

	h.mu.Lock()
	h.subscribers[id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	h.metrics.Store(telemetry.MetricSubscribers, uint64(count))
	network.ClientConnected(context.Background(), h.publisher, 0, logging.ClientRef(id), network.ClientConnectedPayload{RemoteAddr: remoteAddr}, nil)
	return sub
}

// Disconnect removes a session and closes its connection.
func (h *Hub) Disconnect(id, reason string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if !ok {
		return
	}
	sub.Close()
	h.metrics.Store(telemetry.MetricSubscribers, uint64(count))
	network.ClientDisconnected(context.Background(), h.publisher, 0, logging.ClientRef(id), network.ClientDisconnectedPayload{Reason: reason}, nil)
}

// SubscriberCount reports how many sessions are connected.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// CloseAll disconnects every session.
func (h *Hub) CloseAll(reason string) {
	h.mu.Lock()
	ids := make([]string, 0, len(h.subscribers))
	for id := range h.subscribers {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.Disconnect(id, reason)
	}
}

// WorldStarted implements sim.Observer.
func (h *Hub) WorldStarted(layout sim.Layout) {
	h.Broadcast(proto.EventWorldStarted, proto.Layout(layout))
}

// Evolved implements sim.Observer.
func (h *Hub) Evolved(evolution sim.Evolution) {
	h.Broadcast(proto.EventEvolution, proto.Evolution(evolution))
}

// CellsUpdated implements sim.Observer.
func (h *Hub) CellsUpdated(update sim.CellsUpdate) {
	h.Broadcast(proto.EventCellsUpdated, proto.CellsUpdated(update))
}

// Broadcast encodes data once and writes it to every session. Sessions that
// fail to accept the frame are dropped.
func (h *Hub) Broadcast(event string, data any) {
	frame, err := proto.Encode(event, data)
	if err != nil {
		h.logger.Printf("failed to marshal %s broadcast: %v", event, err)
		return
	}

	h.mu.Lock()
	subs := make([]*session, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.WriteMessage(websocket.TextMessage, frame); err != nil {
			h.logger.Printf("failed to send %s to %s: %v", event, sub.id, err)
			h.metrics.Add(telemetry.MetricBroadcastFailures, 1)
			h.Disconnect(sub.id, "write failed")
			continue
		}
		h.metrics.Add(telemetry.MetricBroadcastBytes, uint64(len(frame)))
	}
}
