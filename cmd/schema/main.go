// Command schema emits JSON Schema documents for the designer-facing file
// formats: the weapon catalog tuning table and the on-disk map definition.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"breach/server/internal/arena"
	"breach/server/internal/weapons"
)

func main() {
	var weaponsOut, mapOut string
	flag.StringVar(&weaponsOut, "weapons", "", "path to write the weapon catalog schema")
	flag.StringVar(&mapOut, "map", "", "path to write the map definition schema")
	flag.Parse()

	if weaponsOut == "" && mapOut == "" {
		fmt.Fprintln(os.Stderr, "at least one of --weapons or --map is required")
		os.Exit(1)
	}

	if weaponsOut != "" {
		if err := writeSchema(weaponsOut, buildWeaponSchema()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write weapon schema: %v\n", err)
			os.Exit(1)
		}
	}
	if mapOut != "" {
		if err := writeSchema(mapOut, buildMapSchema()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write map schema: %v\n", err)
			os.Exit(1)
		}
	}
}

func buildWeaponSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	entry := reflector.Reflect(new(weapons.Spec))
	entry.Version = ""

	schema := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Type:        "array",
		Title:       "Weapon Catalog",
		Description: "Tuning rows for every weapon the server resolves.",
		Items:       entry,
	}
	return schema
}

func buildMapSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(arena.MapDef))
	schema.Title = "Map Definition"
	schema.Description = "Wall layout and spawn points for one 480x270 field."
	return schema
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
