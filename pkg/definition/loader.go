package definition

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a graph definition from YAML. JSON documents parse too,
// since JSON is a YAML subset.
func Parse(data []byte) (GraphDefinition, error) {
	var def GraphDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("parse graph definition: %w", err)
	}
	return def, nil
}

// LoadFile reads and parses a definition file.
func LoadFile(path string) (GraphDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GraphDefinition{}, fmt.Errorf("read graph definition: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return def, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadDir parses every .yaml, .yml or .json file directly under dir, in
// lexical order.
func LoadDir(dir string) ([]GraphDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read definitions dir: %w", err)
	}

	var defs []GraphDefinition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		def, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
