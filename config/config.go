// Package config provides configuration types and utilities for the
// multi-agent orchestration engine.
// This file contains the main unified configuration entry point.
package config

import (
	"fmt"
)

// ============================================================================
// MAIN UNIFIED CONFIGURATION
// ============================================================================

// Config represents the complete configuration: the provider bindings every
// Agent and Swarm draw from, plus the named Agent and Swarm definitions
// themselves.
type Config struct {
	Version     string            `yaml:"version,omitempty"`
	Name        string            `yaml:"name,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`

	Global GlobalSettings `yaml:"global,omitempty"`

	LLMs      map[string]LLMProviderConfig      `yaml:"llms,omitempty"`
	Memories  map[string]MemoryProviderConfig   `yaml:"memories,omitempty"`
	Embedders map[string]EmbedderProviderConfig `yaml:"embedders,omitempty"`

	Agents map[string]AgentConfig `yaml:"agents,omitempty"`
	Swarms map[string]SwarmConfig `yaml:"swarms,omitempty"`
}

// Validate implements ConfigInterface for Config.
func (c *Config) Validate() error {
	if err := c.Global.Validate(); err != nil {
		return fmt.Errorf("global settings validation failed: %w", err)
	}
	for name, llm := range c.LLMs {
		if err := llm.Validate(); err != nil {
			return fmt.Errorf("llm '%s' validation failed: %w", name, err)
		}
	}
	for name, mem := range c.Memories {
		if err := mem.Validate(); err != nil {
			return fmt.Errorf("memory '%s' validation failed: %w", name, err)
		}
	}
	for name, emb := range c.Embedders {
		if err := emb.Validate(); err != nil {
			return fmt.Errorf("embedder '%s' validation failed: %w", name, err)
		}
	}
	for name, agent := range c.Agents {
		if err := agent.Validate(); err != nil {
			return fmt.Errorf("agent '%s' validation failed: %w", name, err)
		}
	}
	for name, swarm := range c.Swarms {
		if err := swarm.Validate(); err != nil {
			return fmt.Errorf("swarm '%s' validation failed: %w", name, err)
		}
		for _, ref := range swarm.Agents {
			if _, ok := c.Agents[ref]; !ok {
				return fmt.Errorf("swarm '%s' references unknown agent '%s'", name, ref)
			}
		}
	}
	return nil
}

// SetDefaults implements ConfigInterface for Config.
func (c *Config) SetDefaults() {
	c.Global.SetDefaults()

	if c.LLMs == nil {
		c.LLMs = make(map[string]LLMProviderConfig)
	}
	if c.Memories == nil {
		c.Memories = make(map[string]MemoryProviderConfig)
	}
	if c.Embedders == nil {
		c.Embedders = make(map[string]EmbedderProviderConfig)
	}
	if c.Agents == nil {
		c.Agents = make(map[string]AgentConfig)
	}
	if c.Swarms == nil {
		c.Swarms = make(map[string]SwarmConfig)
	}

	if len(c.LLMs) == 0 {
		c.LLMs["default-llm"] = LLMProviderConfig{}
	}

	for name := range c.LLMs {
		llm := c.LLMs[name]
		llm.SetDefaults()
		c.LLMs[name] = llm
	}
	for name := range c.Memories {
		mem := c.Memories[name]
		mem.SetDefaults()
		c.Memories[name] = mem
	}
	for name := range c.Embedders {
		emb := c.Embedders[name]
		emb.SetDefaults()
		c.Embedders[name] = emb
	}
	for name := range c.Agents {
		agent := c.Agents[name]
		agent.SetDefaults()
		c.Agents[name] = agent
	}
	for name := range c.Swarms {
		swarm := c.Swarms[name]
		swarm.SetDefaults()
		c.Swarms[name] = swarm
	}
}

// ============================================================================
// CONFIGURATION LOADING
// ============================================================================

// LoadConfig loads the complete configuration from a YAML file.
func LoadConfig(filePath string) (*Config, error) {
	var cfg Config
	if err := loadConfig(filePath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadConfigFromString loads configuration from a YAML string.
func LoadConfigFromString(yamlContent string) (*Config, error) {
	var cfg Config
	if err := loadConfigFromString(yamlContent, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from string: %w", err)
	}
	return &cfg, nil
}

// ============================================================================
// HELPER METHODS
// ============================================================================

// GetAgent returns an agent configuration by name.
func (c *Config) GetAgent(name string) (*AgentConfig, bool) {
	agent, exists := c.Agents[name]
	return &agent, exists
}

// GetSwarm returns a swarm configuration by name.
func (c *Config) GetSwarm(name string) (*SwarmConfig, bool) {
	swarm, exists := c.Swarms[name]
	return &swarm, exists
}

// ListAgents returns a list of all agent names.
func (c *Config) ListAgents() []string {
	agents := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		agents = append(agents, name)
	}
	return agents
}

// ListSwarms returns a list of all swarm names.
func (c *Config) ListSwarms() []string {
	swarms := make([]string, 0, len(c.Swarms))
	for name := range c.Swarms {
		swarms = append(swarms, name)
	}
	return swarms
}
