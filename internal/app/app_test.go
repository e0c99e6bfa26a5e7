package app

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"lifeworld/server/internal/store"
	"lifeworld/server/internal/telemetry"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(envMap(nil), nil)

	if cfg.Addr() != "0.0.0.0:3001" {
		t.Fatalf("unexpected default address %s", cfg.Addr())
	}
	if cfg.World.Size != 50 || cfg.World.RefreshInterval != time.Second {
		t.Fatalf("unexpected world defaults %+v", cfg.World)
	}
	if cfg.World.SnapshotKey != store.DefaultKey {
		t.Fatalf("expected default snapshot key, got %q", cfg.World.SnapshotKey)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("expected no redis by default, got %q", cfg.Redis.Addr)
	}
	if cfg.Observability.EnablePprofTrace {
		t.Fatalf("expected pprof disabled by default")
	}
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	cfg := LoadConfig(envMap(map[string]string{
		"HOST":                "127.0.0.1",
		"PORT":                "9000",
		"WORLD_SIZE":          "20",
		"REFRESH_INTERVAL_MS": "250",
		"SNAPSHOT_KEY":        "LIFE:TEST",
		"STORE_TIMEOUT_MS":    "750",
		"SHUTDOWN_TIMEOUT_MS": "1500",
		"REDIS_ADDR":          "redis:6379",
		"REDIS_PASSWORD":      "secret",
		"REDIS_DB":            "2",
		"LOG_JSON_PATH":       "/tmp/life.jsonl",
		"ENABLE_PPROF_TRACE":  "true",
	}), nil)

	if cfg.Addr() != "127.0.0.1:9000" {
		t.Fatalf("unexpected address %s", cfg.Addr())
	}
	if cfg.World.Size != 20 || cfg.World.RefreshInterval != 250*time.Millisecond || cfg.World.SnapshotKey != "LIFE:TEST" {
		t.Fatalf("unexpected world config %+v", cfg.World)
	}
	if cfg.World.StoreTimeout != 750*time.Millisecond || cfg.Redis.Timeout != 750*time.Millisecond {
		t.Fatalf("expected store timeout applied to world and redis, got %v / %v", cfg.World.StoreTimeout, cfg.Redis.Timeout)
	}
	if cfg.ShutdownTimeout != 1500*time.Millisecond {
		t.Fatalf("unexpected shutdown timeout %v", cfg.ShutdownTimeout)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.Redis.Password != "secret" || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
	if cfg.LogJSONPath != "/tmp/life.jsonl" || !cfg.Observability.EnablePprofTrace {
		t.Fatalf("unexpected logging/observability config %+v", cfg)
	}
}

func TestLoadConfigKeepsDefaultsForInvalidValues(t *testing.T) {
	var logged []string
	logger := telemetry.LoggerFunc(func(format string, args ...any) {
		logged = append(logged, format)
	})

	cfg := LoadConfig(envMap(map[string]string{
		"PORT":                "http",
		"WORLD_SIZE":          "-4",
		"REFRESH_INTERVAL_MS": "0",
		"REDIS_DB":            "x",
		"ENABLE_PPROF_TRACE":  "sometimes",
	}), logger)

	defaults := DefaultConfig()
	if cfg.Port != defaults.Port || cfg.World.Size != defaults.World.Size || cfg.World.RefreshInterval != defaults.World.RefreshInterval {
		t.Fatalf("expected defaults to survive invalid input, got %+v", cfg)
	}
	if cfg.Redis.DB != 0 || cfg.Observability.EnablePprofTrace {
		t.Fatalf("expected redis db and pprof defaults, got %+v", cfg)
	}
	if len(logged) != 5 {
		t.Fatalf("expected every invalid value to be logged, got %d lines: %v", len(logged), logged)
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.World.Size = 5
	cfg.World.RefreshInterval = 10 * time.Millisecond
	cfg.ShutdownTimeout = 2 * time.Second
	cfg.Logger = telemetry.NopLogger()
	return cfg
}

func runUntilSaved(t *testing.T, cfg Config, saved func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	deadline := time.Now().Add(3 * time.Second)
	for !saved() {
		if time.Now().After(deadline) {
			t.Fatalf("world never persisted its layout")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
}

func TestRunPersistsAndShutsDownWithMemoryStore(t *testing.T) {
	cfg := testConfig(t)
	memory := store.NewMemory()
	cfg.Store = memory

	runUntilSaved(t, cfg, func() bool {
		_, err := memory.Load(context.Background(), store.DefaultKey)
		return err == nil
	})

	data, err := memory.Load(context.Background(), store.DefaultKey)
	if err != nil {
		t.Fatalf("expected final snapshot, got %v", err)
	}
	g, _, err := store.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("final snapshot is unreadable: %v", err)
	}
	if g.Size() != 5 {
		t.Fatalf("expected size 5 snapshot, got %d", g.Size())
	}
}

func TestRunUsesRedisWhenConfigured(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = srv.Addr()
	cfg.World.SnapshotKey = "LIFE:APP"

	runUntilSaved(t, cfg, func() bool { return srv.Exists("LIFE:APP") })

	value, err := srv.Get("LIFE:APP")
	if err != nil {
		t.Fatalf("expected snapshot in redis: %v", err)
	}
	if !strings.HasPrefix(value, `{"version":1`) {
		t.Fatalf("expected versioned snapshot, got %.40s", value)
	}
}

func TestRunWritesJSONLog(t *testing.T) {
	cfg := testConfig(t)
	memory := store.NewMemory()
	cfg.Store = memory
	cfg.LogJSONPath = filepath.Join(t.TempDir(), "events.jsonl")

	runUntilSaved(t, cfg, func() bool {
		_, err := memory.Load(context.Background(), store.DefaultKey)
		return err == nil
	})

	data, err := os.ReadFile(cfg.LogJSONPath)
	if err != nil {
		t.Fatalf("failed to read json log: %v", err)
	}
	if !strings.Contains(string(data), `"lifecycle.world_started"`) {
		t.Fatalf("expected world started event in json log, got %s", data)
	}
}

func TestRunFailsWhenListenerUnavailable(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a port: %v", err)
	}
	defer busy.Close()

	cfg := testConfig(t)
	memory := store.NewMemory()
	cfg.Store = memory
	cfg.Port = busy.Addr().(*net.TCPAddr).Port

	err = Run(context.Background(), cfg)
	if err == nil {
		t.Fatalf("expected listen failure")
	}
	if errors.Is(err, context.Canceled) {
		t.Fatalf("expected a listen error, got %v", err)
	}
	if _, err := memory.Load(context.Background(), store.DefaultKey); err != nil {
		t.Fatalf("expected the world to be saved even when listening fails, got %v", err)
	}
}
