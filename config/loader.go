package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadConfig reads filePath, expands environment variable references, and
// decodes the result into dst.
func loadConfig(filePath string, dst *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}
	return decodeYAML(string(data), dst)
}

// loadConfigFromString is loadConfig without a file read, for tests and
// embedded/default configurations.
func loadConfigFromString(yamlContent string, dst *Config) error {
	return decodeYAML(yamlContent, dst)
}

// decodeYAML expands $VAR / ${VAR} / ${VAR:-default} references before
// unmarshaling, so env substitution works uniformly across every field
// regardless of its declared type.
func decodeYAML(raw string, dst *Config) error {
	expanded := expandEnvVars(raw)

	var generic map[string]interface{}
	if err := yaml.Unmarshal([]byte(expanded), &generic); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	normalized := ExpandEnvVarsInData(generic)

	reencoded, err := yaml.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("failed to re-encode normalized config: %w", err)
	}

	if err := yaml.Unmarshal(reencoded, dst); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}
