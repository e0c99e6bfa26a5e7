package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotSchemaDescribesEnvelope(t *testing.T) {
	data, err := json.Marshal(buildSnapshotSchema())
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties, got %v", schema)
	}
	for _, field := range []string{"version", "size", "evolvedAt", "layout"} {
		if _, ok := properties[field]; !ok {
			t.Fatalf("expected %s in snapshot schema", field)
		}
	}
}

func TestWireSchemaListsEveryMessage(t *testing.T) {
	schema := buildWireSchema()
	if len(schema.OneOf) != 5 {
		t.Fatalf("expected 5 message schemas, got %d", len(schema.OneOf))
	}
}

func TestWriteSchemaReplacesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "snapshot.schema.json")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(out, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := writeSchema(out, buildSnapshotSchema()); err != nil {
		t.Fatalf("writeSchema failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("expected valid JSON, got %s", data)
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away, got %v", err)
	}
}
