// Package component wires a loaded config.Config into live collaborators:
// LLM providers, a long-term memory store, agents, and swarm routers,
// grounded on the teacher's ComponentManager (component/manager.go), which
// performs the same registry-construction-from-config role for its own
// LLM/database/embedder/tool registries.
package component

import (
	"context"
	"fmt"
	"time"

	"github.com/swarmkit/swarmkit/agent"
	"github.com/swarmkit/swarmkit/automatch"
	"github.com/swarmkit/swarmkit/config"
	"github.com/swarmkit/swarmkit/flow"
	"github.com/swarmkit/swarmkit/llm"
	"github.com/swarmkit/swarmkit/memory"
	"github.com/swarmkit/swarmkit/router"
	"github.com/swarmkit/swarmkit/swarm"
	"github.com/swarmkit/swarmkit/tool"
)

// Error is the standard error type for component-wiring failures.
type Error struct {
	Component string
	Operation string
	Message   string
	Err       error
	Timestamp time.Time
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newComponentError(operation, message string, err error) *Error {
	return &Error{Component: "ComponentManager", Operation: operation, Message: message, Err: err, Timestamp: time.Now()}
}

// Manager owns every live collaborator built from a config.Config: LLM
// providers, memory stores, agents, and assembled routers, analogous to the
// teacher's ComponentManager owning its llmRegistry/dbRegistry/toolRegistry.
type Manager struct {
	cfg *config.Config

	llms    *llm.Registry
	memories map[string]memory.LongTermMemory
	tools   *tool.Registry

	agents map[string]*agent.Agent
}

// New builds a Manager from a loaded, defaulted, validated config.Config.
// Only LLM providers and memory stores referenced by at least one agent are
// constructed, mirroring the teacher's "only used databases/embedders"
// initialization discipline.
func New(cfg *config.Config, tools *tool.Registry) (*Manager, error) {
	if cfg == nil {
		return nil, newComponentError("New", "config is required", nil)
	}

	m := &Manager{
		cfg:      cfg,
		llms:     llm.NewRegistry(),
		memories: make(map[string]memory.LongTermMemory),
		tools:    tools,
		agents:   make(map[string]*agent.Agent),
	}

	usedLLMs := make(map[string]bool)
	usedMemories := make(map[string]bool)
	for _, ac := range cfg.Agents {
		if ac.LLM != "" {
			usedLLMs[ac.LLM] = true
		}
		if ac.Memory != "" {
			usedMemories[ac.Memory] = true
		}
	}

	for name, llmCfg := range cfg.LLMs {
		if !usedLLMs[name] {
			continue
		}
		provider, err := buildLLMProvider(llmCfg)
		if err != nil {
			return nil, newComponentError("New", "failed to build LLM provider "+name, err)
		}
		if err := m.llms.RegisterProvider(name, provider); err != nil {
			return nil, newComponentError("New", "failed to register LLM provider "+name, err)
		}
	}

	for name, memCfg := range cfg.Memories {
		if !usedMemories[name] {
			continue
		}
		mem, err := buildMemory(memCfg, cfg.Embedders)
		if err != nil {
			return nil, newComponentError("New", "failed to build memory store "+name, err)
		}
		m.memories[name] = mem
	}

	for name, ac := range cfg.Agents {
		a, err := m.buildAgent(name, ac)
		if err != nil {
			return nil, newComponentError("New", "failed to build agent "+name, err)
		}
		m.agents[name] = a
	}

	return m, nil
}

// buildLLMProvider translates one config.LLMProviderConfig into a concrete
// llm.Provider, dispatching on its Type field per spec.md §4.14.
func buildLLMProvider(cfg config.LLMProviderConfig) (llm.Provider, error) {
	switch cfg.Type {
	case "openai":
		return llm.NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Host), nil
	case "anthropic":
		return llm.NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.Host), nil
	case "ollama":
		return llm.NewOllamaProvider(cfg.Model, cfg.Host), nil
	case "gemini":
		return llm.NewGeminiProvider(context.Background(), cfg.APIKey, cfg.Model)
	default:
		return nil, newComponentError("buildLLMProvider", "unknown llm type "+cfg.Type, nil)
	}
}

// buildMemory translates one config.MemoryProviderConfig into a concrete
// memory.LongTermMemory, resolving its embedder reference against embCfgs.
func buildMemory(cfg config.MemoryProviderConfig, embCfgs map[string]config.EmbedderProviderConfig) (memory.LongTermMemory, error) {
	switch cfg.Type {
	case "qdrant":
		var embed memory.Embedder
		if cfg.Embedder != "" {
			embCfg, ok := embCfgs[cfg.Embedder]
			if !ok {
				return nil, newComponentError("buildMemory", "unknown embedder reference "+cfg.Embedder, nil)
			}
			embed = llm.NewOllamaProvider(embCfg.Model, embCfg.Host)
		}
		qcfg := &memory.QdrantConfig{Host: cfg.Host, Port: cfg.Port, APIKey: cfg.APIKey, UseTLS: cfg.UseTLS, Collection: cfg.Collection}
		return memory.NewQdrantMemory(qcfg, embed)
	default:
		return nil, newComponentError("buildMemory", "unknown memory type "+cfg.Type, nil)
	}
}

// buildAgent translates one config.AgentConfig into a live *agent.Agent,
// resolving its llm/memory/tools references against the already-built
// registries.
func (m *Manager) buildAgent(name string, ac config.AgentConfig) (*agent.Agent, error) {
	provider, err := m.llms.MustGet(ac.LLM)
	if err != nil {
		return nil, err
	}

	var ltm memory.LongTermMemory
	if ac.Memory != "" {
		var ok bool
		ltm, ok = m.memories[ac.Memory]
		if !ok {
			return nil, newComponentError("buildAgent", "unknown memory reference "+ac.Memory, nil)
		}
	}

	var agentTools *tool.Registry
	if len(ac.Tools) > 0 && m.tools != nil {
		agentTools = tool.NewRegistry()
		for _, toolName := range ac.Tools {
			t, ok := m.tools.Get(toolName)
			if !ok {
				return nil, newComponentError("buildAgent", "unknown tool reference "+toolName, nil)
			}
			if err := agentTools.RegisterTool(t); err != nil {
				return nil, err
			}
		}
	}

	maxLoops := ac.MaxLoops
	if ac.DynamicLoops {
		maxLoops = agent.AutoLoops
	}

	return agent.New(agent.Config{
		Name:               name,
		Description:        ac.Description,
		LLM:                provider,
		SystemPrompt:       ac.SystemPrompt,
		MaxLoops:           maxLoops,
		MaxTokens:          ac.MaxTokens,
		ContextLength:      ac.ContextLength,
		Temperature:        ac.Temperature,
		TopP:               ac.TopP,
		RetryAttempts:      ac.RetryAttempts,
		RetryInterval:      time.Duration(ac.RetryInterval * float64(time.Second)),
		StoppingToken:      ac.StoppingToken,
		DynamicTemperature: ac.DynamicTemperature,
		AutoGeneratePrompt: ac.AutoGeneratePrompt,
		Interactive:        ac.Interactive,
		CustomExitCommand:  ac.CustomExitCommand,
		OutputType:         ac.OutputType,
		LongTermMemory:     ltm,
		Tools:              agentTools,
	})
}

// Agent returns a previously built agent by its config name.
func (m *Manager) Agent(name string) (*agent.Agent, bool) {
	a, ok := m.agents[name]
	return a, ok
}

// BuildRouter assembles a *router.Router for the named swarm, resolving its
// agent references and topology-specific fields, and wiring its
// RouterPolicyConfig into a router.Policy.
func (m *Manager) BuildRouter(swarmName string) (*router.Router, error) {
	sc, ok := m.cfg.Swarms[swarmName]
	if !ok {
		return nil, newComponentError("BuildRouter", "unknown swarm "+swarmName, nil)
	}

	agents := make([]*agent.Agent, 0, len(sc.Agents))
	for _, ref := range sc.Agents {
		a, ok := m.Agent(ref)
		if !ok {
			return nil, newComponentError("BuildRouter", "swarm "+swarmName+" references unknown agent "+ref, nil)
		}
		agents = append(agents, a)
	}

	base := swarm.Base{
		Name:         sc.Name,
		Description:  sc.Description,
		Agents:       agents,
		MaxLoops:     parseMaxLoops(sc.MaxLoops),
		OutputType:   sc.OutputType,
		AutoSave:     sc.Autosave,
		SaveFilePath: sc.SaveFilePath,
	}

	swarmType := topologyToSwarmType(sc.Topology)

	policy := router.Policy{
		Rules:               sc.Router.Rules,
		AutoGeneratePrompts: sc.Router.AutoGeneratePrompts,
		FlowDSL:             sc.Rearrange,
	}
	if sc.Router.SharedMemorySystem != "" {
		mem, ok := m.memories[sc.Router.SharedMemorySystem]
		if !ok {
			return nil, newComponentError("BuildRouter", "unknown shared memory reference "+sc.Router.SharedMemorySystem, nil)
		}
		policy.SharedMemorySystem = mem
	}
	if sc.Router.AutoMatch {
		catalog := make([]automatch.Entry, 0, len(sc.Router.TopologyCandidates))
		for _, name := range sc.Router.TopologyCandidates {
			catalog = append(catalog, automatch.Entry{TypeName: name, Description: name})
		}
		matcher, err := automatch.New(catalog, nil)
		if err != nil {
			return nil, err
		}
		policy.Matcher = matcher
		swarmType = router.TypeAuto
	}

	if sc.Topology == "graph" && sc.Flow != "" {
		if _, err := flow.Parse(sc.Flow, agentNameSet(agents)); err != nil {
			return nil, err
		}
	}

	return router.New(swarmType, base, policy)
}

func parseMaxLoops(s string) int {
	if s == "" {
		return 1
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 1
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 {
		return 1
	}
	return n
}

func topologyToSwarmType(topology string) string {
	switch topology {
	case "sequential", "":
		return router.TypeSequentialWorkflow
	case "concurrent":
		return router.TypeConcurrentWorkflow
	case "round_robin":
		return router.TypeRoundRobin
	case "task_queue":
		return router.TypeTaskQueue
	case "spreadsheet":
		return router.TypeSpreadSheetSwarm
	case "graph":
		return router.TypeGraphWorkflow
	case "rearrange":
		return router.TypeAgentRearrange
	case "hierarchical":
		return router.TypeHierarchical
	case "group_chat":
		return router.TypeGroupChat
	default:
		return router.TypeSequentialWorkflow
	}
}

func agentNameSet(agents []*agent.Agent) map[string]bool {
	out := make(map[string]bool, len(agents))
	for _, a := range agents {
		out[a.Name] = true
	}
	return out
}
