package net

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"time"

	"lifeworld/server/internal/grid"
	"lifeworld/server/internal/net/proto"
	"lifeworld/server/internal/net/ws"
	"lifeworld/server/internal/observability"
	"lifeworld/server/internal/sim"
	"lifeworld/server/internal/telemetry"
	"lifeworld/server/logging"
)

// World is the part of sim.World exposed over HTTP.
type World interface {
	ws.World
	Reset(ctx context.Context) (sim.CellsUpdate, error)
}

// RouterStats reports the structured logging pipeline counters.
type RouterStats interface {
	Stats() logging.RouterStats
}

type HTTPHandlerConfig struct {
	Logger        telemetry.Logger
	Publisher     logging.Publisher
	Observability observability.Config
	Router        RouterStats
	Metrics       *logging.Metrics
}

func NewHTTPHandler(world World, hub *ws.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		layout := world.Layout()
		payload := struct {
			Status      string               `json:"status"`
			ServerTime  int64                `json:"serverTime"`
			Size        int                  `json:"size"`
			AliveCells  int                  `json:"aliveCells"`
			Generation  uint64               `json:"generation"`
			EvolvedAt   *int64               `json:"evolvedAt"`
			Subscribers int                  `json:"subscribers"`
			Logging     *logging.RouterStats `json:"logging,omitempty"`
			Telemetry   map[string]uint64    `json:"telemetry,omitempty"`
		}{
			Status:      "ok",
			ServerTime:  time.Now().UnixMilli(),
			Size:        layout.Size,
			AliveCells:  aliveCells(layout.Rows),
			Generation:  layout.Generation,
			EvolvedAt:   proto.Millis(layout.EvolvedAt),
			Subscribers: hub.SubscriberCount(),
			Telemetry:   cfg.Metrics.Snapshot(),
		}
		if cfg.Router != nil {
			stats := cfg.Router.Stats()
			payload.Logging = &stats
		}

		writeJSON(w, logger, payload)
	})

	mux.HandleFunc("/layout", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, logger, proto.Layout(world.Layout()))
	})

	mux.HandleFunc("/world/reset", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		update, err := world.Reset(r.Context())
		if err != nil {
			// The grid is already cleared; only the stored snapshot may linger.
			logger.Printf("world reset could not delete snapshot: %v", err)
		}

		payload := struct {
			Status  string      `json:"status"`
			Cleared []grid.Cell `json:"cleared"`
			Warning string      `json:"warning,omitempty"`
		}{
			Status:  "ok",
			Cleared: update.Cells,
		}
		if err != nil {
			payload.Warning = err.Error()
		}
		writeJSON(w, logger, payload)
	})

	handler := ws.NewHandler(world, hub, ws.HandlerConfig{Logger: logger, Publisher: cfg.Publisher})
	mux.HandleFunc("/ws", handler.Handle)

	cfg.Observability.Register(mux)

	return mux
}

func aliveCells(rows [][]grid.Cell) int {
	alive := 0
	for _, row := range rows {
		for _, cell := range row {
			if cell.State == grid.Alive {
				alive++
			}
		}
	}
	return alive
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("failed to encode response: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
