package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iancoleman/orderedmap"
	"github.com/invopop/jsonschema"

	"rift-and-ruin/server/layout"
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

	if missing := undocumented(schema); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "schema fields missing descriptions: %s\n", strings.Join(missing, ", "))
		os.Exit(1)
	}

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
	schema := reflector.Reflect(new(layout.Document))
	schema.Title = "Rift & Ruin Arena Layout"
	schema.Description = "Validates designer-authored arena documents in config/arena.json"
	return schema
}

// undocumented reports every property reachable from the schema that lacks a
// description, so editor tooling never shows a blank help string. The check
// runs before writing because a missing description means a missing
// jsonschema tag in the layout package.
func undocumented(schema *jsonschema.Schema) []string {
	missing := walkSchema(nil, "", schema)

	names := make([]string, 0, len(schema.Definitions))
	for name := range schema.Definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		missing = walkSchema(missing, name, schema.Definitions[name])
	}
	return missing
}

func walkSchema(missing []string, prefix string, schema *jsonschema.Schema) []string {
	if schema == nil {
		return missing
	}
	if schema.Items != nil {
		missing = walkSchema(missing, prefix+"[]", schema.Items)
	}
	return walkProperties(missing, prefix, schema.Properties)
}

func walkProperties(missing []string, prefix string, props *orderedmap.OrderedMap) []string {
	if props == nil {
		return missing
	}
	for _, key := range props.Keys() {
		raw, ok := props.Get(key)
		if !ok {
			continue
		}
		property, ok := raw.(*jsonschema.Schema)
		if !ok {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		// Referenced schemas carry their documentation at the target.
		if property.Description == "" && property.Ref == "" {
			missing = append(missing, path)
		}
		missing = walkSchema(missing, path, property)
	}
	return missing
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
