package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/gpufan/internal/domain/fan"
)

// LoadSpeedTable reads a temperature to fan speed mapping from path.
// JSON is accepted as a YAML subset, so both {"60": 50} and "60: 50" work.
func LoadSpeedTable(path string) (*fan.SpeedTable, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read speed table: %w: %w", fan.ErrConfig, err)
	}

	entries, err := ParseSpeedTable(contents)
	if err != nil {
		return nil, fmt.Errorf("parse speed table %s: %w", path, err)
	}

	return fan.NewSpeedTable(entries)
}

// ParseSpeedTable decodes a speed table document into temperature to percent entries.
func ParseSpeedTable(contents []byte) (map[int]int, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(contents, &document); err != nil {
		return nil, fmt.Errorf("%w: %w", fan.ErrConfig, err)
	}

	if document.Kind != yaml.DocumentNode || len(document.Content) == 0 {
		return nil, fmt.Errorf("document is empty: %w", fan.ErrConfig)
	}

	root := document.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of temperature to speed: %w", root.Line, fan.ErrConfig)
	}

	entries := make(map[int]int, len(root.Content)/2)

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]

		temperature, err := parseInteger(keyNode)
		if err != nil {
			return nil, err
		}

		percent, err := parseInteger(valueNode)
		if err != nil {
			return nil, err
		}

		if _, exists := entries[temperature]; exists {
			return nil, fmt.Errorf("line %d: duplicate temperature %d: %w", keyNode.Line, temperature, fan.ErrConfig)
		}

		entries[temperature] = percent
	}

	return entries, nil
}

// parseInteger reads an integer from a scalar node, quoted or not.
func parseInteger(node *yaml.Node) (int, error) {
	if node.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("line %d: expected an integer: %w", node.Line, fan.ErrConfig)
	}

	value, err := strconv.Atoi(strings.TrimSpace(node.Value))
	if err != nil {
		return 0, fmt.Errorf("line %d: %q is not an integer: %w", node.Line, node.Value, fan.ErrConfig)
	}

	return value, nil
}
