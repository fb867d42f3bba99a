package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/invopop/jsonschema"

	"kosmos-worm/server/internal/net/proto"
)

type document struct {
	Title  string                        `json:"title"`
	Client *jsonschema.Schema            `json:"client"`
	Server map[string]*jsonschema.Schema `json:"server"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema (stdout when empty)")
	flag.Parse()

	data, err := json.MarshalIndent(buildDocument(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal schema: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if outPath == "" {
		writeTo(os.Stdout, data)
		return
	}
	if err := writeSchema(outPath, data); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildDocument() document {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	client := reflector.Reflect(new(proto.ClientFrame))
	client.Title = "Client frame"
	client.Description = "Frames sent by browsers: join, input and respawn."

	frames := proto.ServerFrames()
	kinds := make([]string, 0, len(frames))
	for kind := range frames {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	server := make(map[string]*jsonschema.Schema, len(frames))
	for _, kind := range kinds {
		schema := reflector.Reflect(frames[kind])
		schema.Title = kind + " frame"
		server[kind] = schema
	}

	return document{
		Title:  "Kosmos Worm wire protocol",
		Client: client,
		Server: server,
	}
}

func writeTo(w io.Writer, data []byte) {
	if _, err := w.Write(data); err != nil {
		fmt.Fprintf(os.Stderr, "write schema: %v\n", err)
		os.Exit(1)
	}
}

func writeSchema(outPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
