package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"

	"playhouse/engine/catalog"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	entrySchema := reflector.ReflectFromType(reflect.TypeOf(catalog.EntryDocument{}))
	entrySchema.Version = ""
	entrySchema.Title = "Piece Catalog Entry"
	entrySchema.Description = "Designer-authored piece definition consumed by the placement engine."
	entrySchema.AdditionalProperties = &jsonschema.Schema{}

	arraySchema := &jsonschema.Schema{
		Type:        "array",
		Title:       "Array Catalog",
		Description: "Piece catalog expressed as an array of entry objects.",
		Items:       entrySchema,
	}

	objectSchema := &jsonschema.Schema{
		Type:                 "object",
		Title:                "Object Catalog",
		Description:          "Piece catalog expressed as an object keyed by entry ID.",
		AdditionalProperties: entrySchema,
	}

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Playhouse Piece Catalog",
		Description: "Validates designer-authored entries in config/pieces/definitions.json",
		OneOf: []*jsonschema.Schema{
			arraySchema,
			objectSchema,
		},
	}
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
