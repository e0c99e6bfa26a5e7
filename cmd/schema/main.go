package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"lifeworld/server/internal/net/proto"
	"lifeworld/server/internal/store"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas into")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schemas := map[string]*jsonschema.Schema{
		"snapshot.schema.json": buildSnapshotSchema(),
		"wire.schema.json":     buildWireSchema(),
	}
	for name, schema := range schemas {
		if err := writeSchema(filepath.Join(outDir, name), schema); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", name, err)
			os.Exit(1)
		}
	}
}

func buildSnapshotSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(new(store.Snapshot))
	schema.Title = "Game of Life snapshot"
	schema.Description = "Persisted world layout stored under the snapshot key"
	return schema
}

func buildWireSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}

	messages := []struct {
		title string
		value any
	}{
		{"Envelope", new(proto.Envelope)},
		{"Layout", new(proto.LayoutData)},
		{"Cells", new(proto.CellsData)},
		{"New client request", new(proto.NewClientRequest)},
		{"New client response", new(proto.NewClientResponse)},
	}

	root := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Game of Life wire protocol",
		Description: "Websocket frames exchanged on /ws",
	}
	for _, message := range messages {
		schema := reflector.Reflect(message.value)
		schema.Version = ""
		schema.Title = message.title
		root.OneOf = append(root.OneOf, schema)
	}
	return root
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
