package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// decoders maps a settings file extension to its parser.
var decoders = map[string]func([]byte) (Config, error){
	".yaml": FromYAML,
	".yml":  FromYAML,
	".json": FromJSON,
}

// Load reads a settings file, choosing the parser by extension
// (.yaml, .yml or .json, case-insensitive), and validates the result.
// An empty path returns Defaults.
func Load(path string) (Settings, error) {
	if path == "" {
		return Defaults(), nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return Settings{}, fmt.Errorf("%w: unsupported settings file extension %q", ErrInvalidSettings, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}
	cfg, err := decode(data)
	if err != nil {
		return Settings{}, fmt.Errorf("load %s: %w", path, err)
	}
	return FromConfig(cfg)
}

// FromYAML parses a YAML settings document. An empty document yields an
// empty Config, so every key takes its default.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse settings yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses a JSON settings object.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse settings json: %w", err)
	}
	return New(m), nil
}
