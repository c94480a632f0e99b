// Package config provides configuration types and utilities for the
// multi-agent orchestration engine.
package config

import (
	"fmt"
	"time"
)

// ============================================================================
// LLM PROVIDER CONFIGURATION
// ============================================================================

// LLMProviderConfig represents an LLM provider binding.
type LLMProviderConfig struct {
	Type        string  `yaml:"type"`        // "openai", "anthropic", "ollama", "gemini"
	Model       string  `yaml:"model"`       // Model name
	APIKey      string  `yaml:"api_key"`     // API key (openai/anthropic/gemini)
	Host        string  `yaml:"host"`        // Host for ollama or a custom endpoint
	Temperature float64 `yaml:"temperature"` // Temperature setting
	MaxTokens   int     `yaml:"max_tokens"`  // Max tokens
	Timeout     int     `yaml:"timeout"`     // Request timeout in seconds
}

// Validate implements ConfigInterface for LLMProviderConfig.
func (c *LLMProviderConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("type is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if (c.Type == "openai" || c.Type == "anthropic" || c.Type == "gemini") && c.APIKey == "" {
		return fmt.Errorf("api_key is required for %s", c.Type)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	return nil
}

// SetDefaults implements ConfigInterface for LLMProviderConfig.
func (c *LLMProviderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "ollama"
	}
	if c.Model == "" {
		c.Model = "llama3.2"
	}
	if c.Host == "" {
		switch c.Type {
		case "openai":
			c.Host = "https://api.openai.com/v1"
		case "anthropic":
			c.Host = "https://api.anthropic.com"
		case "ollama":
			c.Host = "http://localhost:11434"
		}
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
}

// ============================================================================
// MEMORY PROVIDER CONFIGURATION
// ============================================================================

// MemoryProviderConfig binds a long-term, vector-backed knowledge base.
type MemoryProviderConfig struct {
	Type       string `yaml:"type"` // "qdrant"
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
	Embedder   string `yaml:"embedder"` // reference into Embedders
}

func (c *MemoryProviderConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("type is required")
	}
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 {
		return fmt.Errorf("port must be positive")
	}
	return nil
}

func (c *MemoryProviderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "qdrant"
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "swarmkit"
	}
}

// EmbedderProviderConfig represents embedder provider configuration.
type EmbedderProviderConfig struct {
	Type       string `yaml:"type"`
	Model      string `yaml:"model"`
	Host       string `yaml:"host"`
	Dimension  int    `yaml:"dimension"`
	Timeout    int    `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
}

func (c *EmbedderProviderConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("type is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive")
	}
	return nil
}

func (c *EmbedderProviderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "ollama"
	}
	if c.Model == "" {
		c.Model = "nomic-embed-text"
	}
	if c.Host == "" {
		c.Host = "http://localhost:11434"
	}
	if c.Dimension == 0 {
		c.Dimension = 768
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// ============================================================================
// AGENT CONFIGURATION
// ============================================================================

// AgentConfig is the full policy an Agent's run loop executes under.
type AgentConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	LLM         string `yaml:"llm"`    // reference into Config.LLMs
	Memory      string `yaml:"memory"` // reference into Config.Memories, optional

	SystemPrompt string `yaml:"system_prompt"`

	// MaxLoops holds either a positive integer or the literal string "auto",
	// meaning loop until a stop condition fires. Represented as a string so
	// both shapes round-trip through YAML without a custom unmarshaler on the
	// call sites that only ever compare it to "auto".
	MaxLoops      string  `yaml:"max_loops"`
	MaxTokens     int     `yaml:"max_tokens"`
	ContextLength int     `yaml:"context_length"`
	Temperature   float64 `yaml:"temperature"`
	TopP          float64 `yaml:"top_p"`

	RetryAttempts int     `yaml:"retry_attempts"`
	RetryInterval float64 `yaml:"retry_interval"` // seconds, base delay for exponential backoff

	StoppingToken     string `yaml:"stopping_token"`
	StoppingCondition string `yaml:"stopping_condition"` // name of a registered predicate, resolved by the agent's owner

	DynamicTemperature bool `yaml:"dynamic_temperature"`
	DynamicLoops       bool `yaml:"dynamic_loops"` // forces MaxLoops to the "auto" sentinel
	AutoGeneratePrompt bool `yaml:"auto_generate_prompt"`
	Interactive        bool `yaml:"interactive"`
	CustomExitCommand  string `yaml:"custom_exit_command"`

	OutputType string `yaml:"output_type"` // string|str|list|dict|json|yaml

	Tools []string `yaml:"tools"` // references into a tool registry the owner wires

	AutosavePath string `yaml:"autosave_path"`
}

// Validate implements ConfigInterface for AgentConfig.
func (c *AgentConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.LLM == "" {
		return fmt.Errorf("llm provider reference is required")
	}
	if c.MaxLoops == "" {
		return fmt.Errorf("max_loops is required")
	}
	if c.MaxLoops != "auto" {
		var n int
		if _, err := fmt.Sscanf(c.MaxLoops, "%d", &n); err != nil || n <= 0 {
			return fmt.Errorf("max_loops must be a positive integer or \"auto\"")
		}
	}
	if c.MaxTokens == 0 {
		return fmt.Errorf("max_tokens is required")
	}
	if c.ContextLength == 0 {
		return fmt.Errorf("context_length is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	switch c.OutputType {
	case "", "string", "str", "list", "dict", "json", "yaml":
	default:
		return fmt.Errorf("invalid output_type: %s", c.OutputType)
	}
	return nil
}

// SetDefaults implements ConfigInterface for AgentConfig.
func (c *AgentConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "Agent"
	}
	if c.LLM == "" {
		c.LLM = "default-llm"
	}
	if c.DynamicLoops {
		c.MaxLoops = "auto"
	}
	if c.MaxLoops == "" {
		c.MaxLoops = "1"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.ContextLength == 0 {
		c.ContextLength = 8192
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = 1.0
	}
	if c.CustomExitCommand == "" {
		c.CustomExitCommand = "exit"
	}
	if c.OutputType == "" {
		c.OutputType = "string"
	}
}

// ============================================================================
// SWARM / TOPOLOGY CONFIGURATION
// ============================================================================

// SwarmConfig describes a named collection of agents run under one topology.
type SwarmConfig struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Topology    string   `yaml:"topology"` // sequential|concurrent|round_robin|task_queue|spreadsheet|graph|rearrange|hierarchical|group_chat
	Agents      []string `yaml:"agents"`   // references into Config.Agents

	MaxLoops   string `yaml:"max_loops"`
	OutputType string `yaml:"output_type"`

	Autosave     bool   `yaml:"autosave"`
	SaveFilePath string `yaml:"save_file_path"`

	// Flow is the DSL string for the Graph topology, e.g. "A -> B, C -> H -> D".
	Flow string `yaml:"flow,omitempty"`

	// Rearrange is the DSL string for the Rearrange topology.
	Rearrange string `yaml:"rearrange,omitempty"`

	// CSVPath optionally seeds a SpreadSheetSwarm's per-agent task rows.
	CSVPath string `yaml:"csv_path,omitempty"`

	Router RouterPolicyConfig `yaml:"router,omitempty"`
}

// Validate implements ConfigInterface for SwarmConfig.
func (c *SwarmConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent is required")
	}
	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if seen[a] {
			return fmt.Errorf("duplicate agent reference: %s", a)
		}
		seen[a] = true
	}
	switch c.Topology {
	case "sequential", "concurrent", "round_robin", "task_queue", "spreadsheet",
		"graph", "rearrange", "hierarchical", "group_chat", "":
	default:
		return fmt.Errorf("invalid topology: %s", c.Topology)
	}
	if c.Topology == "graph" && c.Flow == "" {
		return fmt.Errorf("flow is required for the graph topology")
	}
	if c.Topology == "rearrange" && c.Rearrange == "" {
		return fmt.Errorf("rearrange is required for the rearrange topology")
	}
	if c.Autosave && c.SaveFilePath == "" {
		return fmt.Errorf("save_file_path is required when autosave is enabled")
	}
	return c.Router.Validate()
}

// SetDefaults implements ConfigInterface for SwarmConfig.
func (c *SwarmConfig) SetDefaults() {
	if c.Topology == "" {
		c.Topology = "sequential"
	}
	if c.MaxLoops == "" {
		c.MaxLoops = "1"
	}
	if c.OutputType == "" {
		c.OutputType = "string"
	}
	c.Router.SetDefaults()
}

// RouterPolicyConfig carries the policy a SwarmRouter propagates to every
// agent it dispatches into, regardless of topology.
type RouterPolicyConfig struct {
	SharedMemorySystem string   `yaml:"shared_memory_system,omitempty"` // reference into Config.Memories
	Rules              string   `yaml:"rules,omitempty"`
	AutoGeneratePrompts bool    `yaml:"auto_generate_prompts,omitempty"`
	RetryAttempts      int      `yaml:"retry_attempts,omitempty"`
	RetryInterval      float64  `yaml:"retry_interval,omitempty"`
	AutoMatch          bool     `yaml:"auto_match,omitempty"` // use the auto-matcher instead of Topology field; component.Manager builds it without an embedder, so it always selects SequentialWorkflow
	TopologyCandidates []string `yaml:"topology_candidates,omitempty"`
}

func (c *RouterPolicyConfig) Validate() error {
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must be non-negative")
	}
	return nil
}

func (c *RouterPolicyConfig) SetDefaults() {
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = 1.0
	}
}

// ============================================================================
// GLOBAL SETTINGS
// ============================================================================

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Level] {
		return fmt.Errorf("invalid log level: %s", c.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Format] {
		return fmt.Errorf("invalid log format: %s", c.Format)
	}
	validOutputs := map[string]bool{"stdout": true, "stderr": true, "file": true}
	if !validOutputs[c.Output] {
		return fmt.Errorf("invalid output destination: %s", c.Output)
	}
	return nil
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
}

// PerformanceConfig bounds swarm-wide concurrency and timeouts.
type PerformanceConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency"`
	Timeout        time.Duration `yaml:"timeout"`
}

func (c *PerformanceConfig) Validate() error {
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func (c *PerformanceConfig) SetDefaults() {
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = 4
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Minute
	}
}

// WorkspaceConfig controls where autosave/metadata files land.
type WorkspaceConfig struct {
	Dir string `yaml:"dir"`
}

func (c *WorkspaceConfig) Validate() error { return nil }

func (c *WorkspaceConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "./workspace"
	}
}

// GlobalSettings contains global, cross-swarm configuration.
type GlobalSettings struct {
	Logging     LoggingConfig     `yaml:"logging,omitempty"`
	Performance PerformanceConfig `yaml:"performance,omitempty"`
	Workspace   WorkspaceConfig   `yaml:"workspace,omitempty"`
}

func (c *GlobalSettings) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}
	if err := c.Performance.Validate(); err != nil {
		return fmt.Errorf("performance config validation failed: %w", err)
	}
	return c.Workspace.Validate()
}

func (c *GlobalSettings) SetDefaults() {
	c.Logging.SetDefaults()
	c.Performance.SetDefaults()
	c.Workspace.SetDefaults()
}
