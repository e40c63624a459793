package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Decode parses a mapping document from JSON or YAML, detected by content.
// Unknown fields are rejected in both formats and the result is validated.
func Decode(data []byte) (*Config, error) {
	if looksLikeJSON(data) {
		return DecodeJSON(data)
	}

	// Route YAML through the JSON decoder so both formats share the same
	// variant handling and unknown-field strictness.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse mapping YAML: %w", err)
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize mapping YAML: %w", err)
	}
	return DecodeJSON(encoded)
}

// DecodeJSON parses a JSON mapping document, rejecting unknown fields.
func DecodeJSON(data []byte) (*Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("invalid mapping config: %w", err)
	}
	if cfg.Sheet == "" {
		cfg.Sheet = DefaultSheet
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mapping config: %w", err)
	}
	return &cfg, nil
}

// EncodeJSON renders a mapping document as indented JSON.
func EncodeJSON(cfg *Config) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode mapping config: %w", err)
	}
	return append(data, '\n'), nil
}

// EncodeYAML renders a mapping document as YAML.
func EncodeYAML(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mapping config: %w", err)
	}
	return data, nil
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
