package lifecycle

import (
	"context"

	"lifeworld/server/logging"
)

const (
	// EventWorldStarted is emitted once the world has loaded its layout and begun ticking.
	EventWorldStarted logging.EventType = "lifecycle.world_started"
	// EventWorldStopped is emitted after the final save on shutdown.
	EventWorldStopped logging.EventType = "lifecycle.world_stopped"
	// EventSnapshotLoaded is emitted when a persisted layout seeds the world.
	EventSnapshotLoaded logging.EventType = "lifecycle.snapshot_loaded"
	// EventSnapshotSaved is emitted after a layout has been persisted.
	EventSnapshotSaved logging.EventType = "lifecycle.snapshot_saved"
	// EventSnapshotFailed is emitted when loading, saving or deleting a layout fails.
	EventSnapshotFailed logging.EventType = "lifecycle.snapshot_failed"
)

// WorldStartedPayload describes the grid the world started with.
type WorldStartedPayload struct {
	Size            int   `json:"size"`
	AliveCells      int   `json:"aliveCells"`
	RefreshInterval int64 `json:"refreshIntervalMillis"`
	Seeded          bool  `json:"seeded"`
}

// WorldStoppedPayload reports whether the final save succeeded.
type WorldStoppedPayload struct {
	Saved bool   `json:"saved"`
	Error string `json:"error,omitempty"`
}

// SnapshotPayload describes a persisted layout.
type SnapshotPayload struct {
	Size       int `json:"size"`
	AliveCells int `json:"aliveCells"`
	Bytes      int `json:"bytes,omitempty"`
}

// SnapshotFailedPayload captures the failing store operation.
type SnapshotFailedPayload struct {
	Operation string `json:"operation"`
	Error     string `json:"error"`
}

// WorldStarted publishes a world start event.
func WorldStarted(ctx context.Context, pub logging.Publisher, generation uint64, payload WorldStartedPayload, extra map[string]any) {
	publish(ctx, pub, EventWorldStarted, generation, logging.WorldRef(), logging.SeverityInfo, payload, extra)
}

// WorldStopped publishes a world shutdown event.
func WorldStopped(ctx context.Context, pub logging.Publisher, generation uint64, payload WorldStoppedPayload, extra map[string]any) {
	severity := logging.SeverityInfo
	if !payload.Saved {
		severity = logging.SeverityWarn
	}
	publish(ctx, pub, EventWorldStopped, generation, logging.WorldRef(), severity, payload, extra)
}

// SnapshotLoaded publishes a snapshot load event.
func SnapshotLoaded(ctx context.Context, pub logging.Publisher, generation uint64, key string, payload SnapshotPayload, extra map[string]any) {
	publish(ctx, pub, EventSnapshotLoaded, generation, logging.StoreRef(key), logging.SeverityInfo, payload, extra)
}

// SnapshotSaved publishes a snapshot save event.
func SnapshotSaved(ctx context.Context, pub logging.Publisher, generation uint64, key string, payload SnapshotPayload, extra map[string]any) {
	publish(ctx, pub, EventSnapshotSaved, generation, logging.StoreRef(key), logging.SeverityDebug, payload, extra)
}

// SnapshotFailed publishes a warning for a failed store operation.
func SnapshotFailed(ctx context.Context, pub logging.Publisher, generation uint64, key string, payload SnapshotFailedPayload, extra map[string]any) {
	publish(ctx, pub, EventSnapshotFailed, generation, logging.StoreRef(key), logging.SeverityWarn, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, generation uint64, actor logging.EntityRef, severity logging.Severity, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:       eventType,
		Generation: generation,
		Actor:      actor,
		Severity:   severity,
		Category:   logging.CategoryLifecycle,
		Payload:    payload,
		Extra:      extra,
	})
}
