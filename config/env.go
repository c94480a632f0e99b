// Package config provides configuration types and utilities for the
// multi-agent orchestration engine.
// This file expands environment-variable references inside loaded config
// values before they're parsed into typed structs.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Recognized reference forms, most specific first so a default value isn't
// swallowed by the bare ${VAR} pattern.
var (
	reVarWithDefault = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`)
	reVarBraced      = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	reVarBare        = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

// expandEnvVars substitutes ${VAR:-default}, ${VAR}, and $VAR references in
// s with values from the process environment, applied in that precedence
// order.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	s = reVarWithDefault.ReplaceAllStringFunc(s, func(match string) string {
		groups := reVarWithDefault.FindStringSubmatch(match)
		if len(groups) != 3 {
			return match
		}
		if val := os.Getenv(groups[1]); val != "" {
			return val
		}
		return groups[2]
	})

	s = reVarBraced.ReplaceAllStringFunc(s, func(match string) string {
		groups := reVarBraced.FindStringSubmatch(match)
		if len(groups) != 2 {
			return match
		}
		return os.Getenv(groups[1])
	})

	s = reVarBare.ReplaceAllStringFunc(s, func(match string) string {
		groups := reVarBare.FindStringSubmatch(match)
		if len(groups) != 2 {
			return match
		}
		return os.Getenv(groups[1])
	})

	return s
}

// parseValue coerces an expanded string into a bool/int/float64 when it
// looks like one, so a YAML field like `max_loops: ${MAX_LOOPS:-5}` still
// round-trips as a number rather than staying a string after expansion.
func parseValue(value string) interface{} {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

// ExpandEnvVarsInData walks a decoded YAML/JSON tree (maps, slices, and
// scalars produced by a generic Unmarshal into interface{}) and expands
// environment-variable references in every string leaf, re-typing leaves
// that expand into a bool/number.
func ExpandEnvVarsInData(data interface{}) interface{} {
	switch v := data.(type) {
	case string:
		expanded := expandEnvVars(v)
		if expanded != v {
			return parseValue(expanded)
		}
		return expanded
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = ExpandEnvVarsInData(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = ExpandEnvVarsInData(item)
		}
		return out
	default:
		return v
	}
}

// LoadEnvFiles loads .env.local then .env into the process environment,
// earlier files taking precedence over later ones per godotenv's
// first-write-wins behavior. A missing file is not an error.
func LoadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}
