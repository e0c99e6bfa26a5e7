package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lifeworld/server/internal/grid"
	"lifeworld/server/internal/store"
	"lifeworld/server/internal/telemetry"
	"lifeworld/server/logging"
	"lifeworld/server/logging/lifecycle"
	"lifeworld/server/logging/simulation"
)

var (
	// ErrWorldStarted is returned by Start on a world that is already running.
	ErrWorldStarted = errors.New("sim: world already started")
	// ErrWorldStopped is delivered by Stop when the world was already stopped
	// and returned by Start once Stop has been called.
	ErrWorldStopped = errors.New("sim: world already stopped")
)

const (
	DefaultSize            = 50
	DefaultRefreshInterval = time.Second
)

// WorldConfig tunes the simulated grid and its persistence.
type WorldConfig struct {
	Size            int
	RefreshInterval time.Duration
	SnapshotKey     string
	// StoreTimeout bounds every store call. Zero relies on the caller's context.
	StoreTimeout time.Duration
}

// DefaultWorldConfig mirrors the settings used when nothing is configured.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Size:            DefaultSize,
		RefreshInterval: DefaultRefreshInterval,
		SnapshotKey:     store.DefaultKey,
		StoreTimeout:    2 * time.Second,
	}
}

// WorldDeps carries collaborators injected into the world.
type WorldDeps struct {
	Store     store.Store
	Logger    telemetry.Logger
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Now       func() time.Time
}

// World owns the current generation. Ticks, mutations and resets are
// serialized on a single mutex and replace the grid wholesale, so readers
// always copy a complete generation. Each of them takes a turn while holding
// that mutex and notifies observers only when its turn comes up, so
// observers see changes in the order they were applied. Observers must not
// mutate the world from inside a callback.
type World struct {
	cfg       WorldConfig
	store     store.Store
	logger    telemetry.Logger
	publisher logging.Publisher
	metrics   telemetry.Metrics
	now       func() time.Time
	clock     *Clock

	mu         sync.Mutex
	current    *grid.Grid
	evolvedAt  time.Time
	generation uint64
	turns      uint64

	turnMu   sync.Mutex
	turnCond *sync.Cond
	served   uint64

	observersMu sync.RWMutex
	observers   []Observer

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
}

// NewWorld builds a world holding an empty grid. Call Start to load the
// persisted layout and begin ticking.
func NewWorld(cfg WorldConfig, deps WorldDeps) *World {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.SnapshotKey == "" {
		cfg.SnapshotKey = store.DefaultKey
	}
	if deps.Store == nil {
		deps.Store = store.NewMemory()
	}
	if deps.Logger == nil {
		deps.Logger = telemetry.NopLogger()
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.WrapMetrics(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	w := &World{
		cfg:       cfg,
		store:     deps.Store,
		logger:    deps.Logger,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		now:       deps.Now,
		current:   grid.New(cfg.Size, nil),
	}
	w.turnCond = sync.NewCond(&w.turnMu)
	w.clock = NewClock(cfg.RefreshInterval, w.Tick, deps.Now, ClockHooks{AfterTick: w.afterTick})
	return w
}

// Config returns the effective configuration.
func (w *World) Config() WorldConfig {
	return w.cfg
}

// Clock exposes the scheduler driving the world.
func (w *World) Clock() *Clock {
	return w.clock
}

// Subscribe registers an observer for all future notifications.
func (w *World) Subscribe(o Observer) {
	if o == nil {
		return
	}
	w.observersMu.Lock()
	defer w.observersMu.Unlock()
	w.observers = append(w.observers, o)
}

func (w *World) snapshotObservers() []Observer {
	w.observersMu.RLock()
	defer w.observersMu.RUnlock()
	return append([]Observer(nil), w.observers...)
}

// takeTurn reserves the next notification slot. The caller holds w.mu and
// must pass the result to notify exactly once.
func (w *World) takeTurn() uint64 {
	turn := w.turns
	w.turns++
	return turn
}

// notify waits until every earlier turn has been delivered, then runs fn for
// each observer.
func (w *World) notify(turn uint64, fn func(Observer)) {
	w.turnMu.Lock()
	for w.served != turn {
		w.turnCond.Wait()
	}
	w.turnMu.Unlock()

	defer func() {
		w.turnMu.Lock()
		w.served++
		w.turnCond.Broadcast()
		w.turnMu.Unlock()
	}()
	for _, o := range w.snapshotObservers() {
		fn(o)
	}
}

// Start loads the persisted layout, seeds the grid from it, writes the seeded
// layout back, notifies observers and starts the clock. Store failures are
// logged and leave the world with a fresh grid.
func (w *World) Start(ctx context.Context) error {
	w.lifecycleMu.Lock()
	switch {
	case w.stopped:
		w.lifecycleMu.Unlock()
		return ErrWorldStopped
	case w.started:
		w.lifecycleMu.Unlock()
		return ErrWorldStarted
	}
	w.started = true
	w.lifecycleMu.Unlock()

	seed, seedEvolvedAt := w.load(ctx)
	seeded := seed
	if seed == nil || seed.Size() != w.cfg.Size {
		seeded = grid.New(w.cfg.Size, seed)
	}

	w.mu.Lock()
	w.current = seeded
	if seed != nil {
		w.evolvedAt = seedEvolvedAt
	}
	layout := w.layoutLocked()
	turn := w.takeTurn()
	w.mu.Unlock()

	_ = w.Save(ctx)

	lifecycle.WorldStarted(ctx, w.publisher, layout.Generation, lifecycle.WorldStartedPayload{
		Size:            layout.Size,
		AliveCells:      seeded.AliveCount(),
		RefreshInterval: w.cfg.RefreshInterval.Milliseconds(),
		Seeded:          seed != nil,
	}, nil)
	w.notify(turn, func(o Observer) {
		o.WorldStarted(cloneLayout(layout))
	})

	return w.clock.Start()
}

func (w *World) load(ctx context.Context) (*grid.Grid, time.Time) {
	ctx, cancel := w.storeContext(ctx)
	defer cancel()

	key := w.cfg.SnapshotKey
	data, err := w.store.Load(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.Printf("no snapshot stored under %s, seeding a fresh grid", key)
		return nil, time.Time{}
	}
	if err != nil {
		w.reportStoreFailure(ctx, "load", err)
		return nil, time.Time{}
	}

	g, evolvedAt, err := store.DecodeSnapshot(data)
	if err != nil {
		w.reportStoreFailure(ctx, "decode", err)
		return nil, time.Time{}
	}
	if g.Size() > w.cfg.Size {
		w.logger.Printf("snapshot size %d exceeds configured size %d, seeding a fresh grid", g.Size(), w.cfg.Size)
		return nil, time.Time{}
	}
	lifecycle.SnapshotLoaded(ctx, w.publisher, 0, key, lifecycle.SnapshotPayload{
		Size:       g.Size(),
		AliveCells: g.AliveCount(),
		Bytes:      len(data),
	}, nil)
	return g, evolvedAt
}

// Tick advances the world by one generation and notifies observers.
func (w *World) Tick(now time.Time) {
	w.mu.Lock()
	next, changes := Advance(w.current)
	w.current = next
	w.evolvedAt = now
	w.generation++
	generation := w.generation
	alive := next.AliveCount()
	turn := w.takeTurn()
	w.mu.Unlock()

	w.metrics.Add(telemetry.MetricWorldTicks, 1)
	w.metrics.Store(telemetry.MetricWorldAliveCells, uint64(alive))
	simulation.GenerationEvolved(context.Background(), w.publisher, generation, simulation.GenerationEvolvedPayload{
		Changed:    len(changes),
		AliveCells: alive,
		EvolvedAt:  now.UnixMilli(),
	}, nil)

	w.notify(turn, func(o Observer) {
		o.Evolved(Evolution{Cells: cloneCells(changes), EvolvedAt: now, Generation: generation})
	})
}

func (w *World) afterTick(result TickResult) {
	if result.Budget <= 0 || result.Duration <= result.Budget {
		return
	}
	simulation.TickBudgetOverrun(context.Background(), w.publisher, w.Generation(), simulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          float64(result.Duration) / float64(result.Budget),
	}, nil)
}

// SetCells validates a raw {"cells": [...]} request and applies it
// atomically. The generation timestamp is not advanced.
func (w *World) SetCells(raw []byte) (CellsUpdate, error) {
	return w.mutate(func(size int) ([]grid.Cell, error) {
		return ParseUpdateRequest(raw, size)
	})
}

// ApplyCells is SetCells for callers that already hold typed cells.
func (w *World) ApplyCells(cells []grid.Cell) (CellsUpdate, error) {
	return w.mutate(func(int) ([]grid.Cell, error) {
		return cells, nil
	})
}

func (w *World) mutate(parse func(size int) ([]grid.Cell, error)) (CellsUpdate, error) {
	w.mu.Lock()
	cells, err := parse(w.current.Size())
	if err == nil {
		var next *grid.Grid
		if next, err = ApplyUpdates(w.current, cells); err == nil {
			w.current = next
		}
	}
	update := CellsUpdate{Cells: cells, EvolvedAt: w.evolvedAt, Generation: w.generation}
	var turn uint64
	if err == nil {
		turn = w.takeTurn()
	}
	w.mu.Unlock()

	if err != nil {
		w.metrics.Add(telemetry.MetricWorldUpdateRejects, 1)
		return CellsUpdate{}, err
	}

	w.metrics.Add(telemetry.MetricWorldCellsUpdated, uint64(len(cells)))
	simulation.CellsUpdated(context.Background(), w.publisher, update.Generation, simulation.CellsUpdatedPayload{Cells: len(cells)}, nil)
	w.notify(turn, func(o Observer) {
		o.CellsUpdated(CellsUpdate{Cells: cloneCells(update.Cells), EvolvedAt: update.EvolvedAt, Generation: update.Generation})
	})
	update.Cells = cloneCells(update.Cells)
	return update, nil
}

// Layout returns a copy of the current generation.
func (w *World) Layout() Layout {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.layoutLocked()
}

func (w *World) layoutLocked() Layout {
	return Layout{
		Size:       w.current.Size(),
		Rows:       w.current.Rows(),
		EvolvedAt:  w.evolvedAt,
		Generation: w.generation,
	}
}

// Grid returns a copy of the current grid.
func (w *World) Grid() *grid.Grid {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.Clone()
}

// Generation reports how many ticks have been applied.
func (w *World) Generation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation
}

// Save persists the current generation.
func (w *World) Save(ctx context.Context) error {
	w.mu.Lock()
	g := w.current.Clone()
	evolvedAt := w.evolvedAt
	generation := w.generation
	w.mu.Unlock()

	data, err := store.EncodeSnapshot(g, evolvedAt)
	if err != nil {
		w.reportStoreFailure(ctx, "encode", err)
		return err
	}

	ctx, cancel := w.storeContext(ctx)
	defer cancel()
	if err := w.store.Save(ctx, w.cfg.SnapshotKey, data); err != nil {
		w.metrics.Add(telemetry.MetricWorldSaveFailures, 1)
		w.reportStoreFailure(ctx, "save", err)
		return fmt.Errorf("save snapshot: %w", err)
	}
	lifecycle.SnapshotSaved(ctx, w.publisher, generation, w.cfg.SnapshotKey, lifecycle.SnapshotPayload{
		Size:       g.Size(),
		AliveCells: g.AliveCount(),
		Bytes:      len(data),
	}, nil)
	return nil
}

// Reset deletes the persisted snapshot and replaces the grid with an empty
// one. Observers receive the cells that died as a CellsUpdate.
func (w *World) Reset(ctx context.Context) (CellsUpdate, error) {
	storeCtx, cancel := w.storeContext(ctx)
	deleteErr := w.store.Delete(storeCtx, w.cfg.SnapshotKey)
	cancel()
	if deleteErr != nil {
		w.reportStoreFailure(ctx, "delete", deleteErr)
		deleteErr = fmt.Errorf("delete snapshot: %w", deleteErr)
	}

	w.mu.Lock()
	prev := w.current
	w.current = grid.New(prev.Size(), nil)
	update := CellsUpdate{Cells: Diff(prev, w.current), EvolvedAt: w.evolvedAt, Generation: w.generation}
	turn := w.takeTurn()
	w.mu.Unlock()

	w.metrics.Store(telemetry.MetricWorldAliveCells, 0)
	w.notify(turn, func(o Observer) {
		o.CellsUpdated(CellsUpdate{Cells: cloneCells(update.Cells), EvolvedAt: update.EvolvedAt, Generation: update.Generation})
	})
	return update, deleteErr
}

// Stop halts the clock, waits for an in-flight tick, saves the layout once
// and then delivers the save result on done before closing it. Delivery is
// abandoned if ctx ends first. A nil done is allowed.
func (w *World) Stop(ctx context.Context, done chan<- error) {
	w.lifecycleMu.Lock()
	alreadyStopped := w.stopped
	w.stopped = true
	w.lifecycleMu.Unlock()

	if alreadyStopped {
		deliver(ctx, done, ErrWorldStopped)
		return
	}

	go func() {
		w.clock.Stop()
		err := w.Save(ctx)
		payload := lifecycle.WorldStoppedPayload{Saved: err == nil}
		if err != nil {
			payload.Error = err.Error()
			w.logger.Printf("world stopped without saving: %v", err)
		}
		lifecycle.WorldStopped(ctx, w.publisher, w.Generation(), payload, nil)
		deliver(ctx, done, err)
	}()
}

// Shutdown is Stop with a blocking wait bounded by ctx.
func (w *World) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	w.Stop(ctx, done)
	select {
	case err, ok := <-done:
		if !ok {
			return ctx.Err()
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func deliver(ctx context.Context, done chan<- error, err error) {
	if done == nil {
		return
	}
	defer close(done)
	select {
	case done <- err:
	case <-ctx.Done():
	}
}

func (w *World) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.cfg.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, w.cfg.StoreTimeout)
}

func (w *World) reportStoreFailure(ctx context.Context, operation string, err error) {
	w.logger.Printf("snapshot %s failed for %s: %v", operation, w.cfg.SnapshotKey, err)
	lifecycle.SnapshotFailed(ctx, w.publisher, w.Generation(), w.cfg.SnapshotKey, lifecycle.SnapshotFailedPayload{
		Operation: operation,
		Error:     err.Error(),
	}, nil)
}

func cloneLayout(layout Layout) Layout {
	rows := make([][]grid.Cell, len(layout.Rows))
	for i, row := range layout.Rows {
		rows[i] = append([]grid.Cell(nil), row...)
	}
	layout.Rows = rows
	return layout
}
