package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"lifeworld/server/internal/color"
	"lifeworld/server/internal/net/proto"
	"lifeworld/server/internal/sim"
	"lifeworld/server/internal/telemetry"
	"lifeworld/server/logging"
	"lifeworld/server/logging/network"
)

// World is the part of sim.World the websocket layer needs.
type World interface {
	Layout() sim.Layout
	SetCells(raw []byte) (sim.CellsUpdate, error)
	Generation() uint64
}

type HandlerConfig struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
}

type Handler struct {
	world     World
	hub       *Hub
	logger    telemetry.Logger
	publisher logging.Publisher
	upgrader  websocket.Upgrader
}

func NewHandler(world World, hub *Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		world:     world,
		hub:       hub,
		logger:    logger,
		publisher: publisher,
		upgrader:  upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	remote := remoteHost(r)
	sub := h.hub.Subscribe(conn, remote)

	writeJSON := func(data []byte, err error) bool {
		if err != nil {
			h.logger.Printf("failed to marshal response for %s: %v", sub.id, err)
			return true
		}
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			h.hub.Disconnect(sub.id, "write failed")
			return false
		}
		return true
	}

	if !writeJSON(proto.Encode(proto.EventServerRestarted, proto.Layout(h.world.Layout()))) {
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			reason := "read failed"
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = "closed by client"
			}
			h.hub.Disconnect(sub.id, reason)
			return
		}

		msg, err := proto.DecodeEnvelope(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", sub.id, err)
			continue
		}

		switch msg.Event {
		case proto.EventNewClient:
			var req proto.NewClientRequest
			if len(msg.Data) > 0 {
				if err := json.Unmarshal(msg.Data, &req); err != nil {
					h.logger.Printf("malformed %s from %s: %v", msg.Event, sub.id, err)
				}
			}
			address := req.Address
			if address == "" {
				address = remote
			}
			response := proto.NewClientResponse{
				LayoutData: proto.Layout(h.world.Layout()),
				Color:      color.ForAddress(address).String(),
				Username:   address,
			}
			if !writeJSON(proto.Encode(proto.EventNewClientResponse, response)) {
				return
			}
		case proto.EventUpdateCells:
			update, err := h.world.SetCells(msg.Data)
			if err != nil {
				h.reportRejection(sub, err)
				if !writeJSON(proto.EncodeFailure(proto.EventUpdateCellsResponse, sim.ErrorCode(err))) {
					return
				}
				continue
			}
			if !writeJSON(proto.Encode(proto.EventUpdateCellsResponse, proto.CellsData{Cells: update.Cells})) {
				return
			}
		default:
			h.logger.Printf("unknown event %q from %s", msg.Event, sub.id)
		}
	}
}

func (h *Handler) reportRejection(sub *session, err error) {
	index := -1
	var verr *sim.ValidationError
	if errors.As(err, &verr) {
		index = verr.Index
	}
	code := sim.ErrorCode(err)
	h.logger.Printf("rejected cell update from %s: %v", sub.id, err)
	network.UpdateRejected(context.Background(), h.publisher, h.world.Generation(), logging.ClientRef(sub.id), network.UpdateRejectedPayload{
		Code:  code,
		Index: index,
	}, nil)
}

func remoteHost(r *nethttp.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
