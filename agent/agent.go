// Package agent implements the stateful per-agent run loop: prompt
// assembly, retried LLM invocation, tool dispatch, conversation
// accumulation, and termination. It is the one place in the module that
// talks to an llm.Provider; every topology executor drives agents only
// through Agent.Run.
package agent

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/swarmkit/swarmkit/conversation"
	"github.com/swarmkit/swarmkit/llm"
	"github.com/swarmkit/swarmkit/memory"
	"github.com/swarmkit/swarmkit/retry"
	"github.com/swarmkit/swarmkit/tool"
	"github.com/swarmkit/swarmkit/utils"
)

// AutoLoops is the MaxLoops sentinel meaning "loop until a stop condition
// fires" rather than a fixed iteration count.
const AutoLoops = "auto"

// Output type tags, case-sensitive per spec.md §6. "string" and "str" are
// treated as equivalent, as are the bare and dotted file-extension forms
// that only matter to external exporters this core does not implement.
const (
	OutputString = "string"
	OutputStr    = "str"
	OutputList   = "list"
	OutputDict   = "dict"
	OutputJSON   = "json"
	OutputYAML   = "yaml"
)

// AgentError is the standard error type for agent construction and run failures.
type AgentError struct {
	Component string
	Operation string
	Message   string
	Err       error
	Timestamp time.Time
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, e.Message)
}

func (e *AgentError) Unwrap() error { return e.Err }

func newAgentError(name, operation, message string, err error) *AgentError {
	return &AgentError{Component: "Agent:" + name, Operation: operation, Message: message, Err: err, Timestamp: time.Now()}
}

// Evaluator runs after the tool executor on each loop and its output is
// appended under conversation.RoleEvaluator.
type Evaluator func(ctx context.Context, output string) (string, error)

// InteractiveInput solicits one line of human input for Interactive agents.
// ok is false on EOF, signaling the loop should stop as if CustomExitCommand
// had been entered.
type InteractiveInput func() (line string, ok bool)

// Agent is a single stateful executor: one LLM binding, one ShortMemory,
// optional long-term memory and tools, and a bounded run loop.
type Agent struct {
	ID          string
	Name        string
	Description string

	LLM llm.Provider

	SystemPrompt string
	// MaxLoops is either a positive integer string or AutoLoops.
	MaxLoops      string
	MaxTokens     int
	ContextLength int
	Temperature   float64
	TopP          float64

	RetryAttempts int
	RetryInterval time.Duration

	StoppingToken     string
	StoppingCondition func(output string) bool

	DynamicTemperature bool
	AutoGeneratePrompt bool
	Interactive        bool
	CustomExitCommand  string
	LoopInterval       time.Duration

	OutputType string

	UserName string

	ShortMemory    *conversation.Conversation
	LongTermMemory memory.LongTermMemory
	Tools          *tool.Registry
	Evaluator      Evaluator

	Input InteractiveInput

	rng    *rand.Rand
	tokens *utils.TokenCounter
}

// Config bundles the constructor arguments for New, mirroring config.AgentConfig's shape.
type Config struct {
	Name          string
	Description   string
	LLM           llm.Provider
	SystemPrompt  string
	MaxLoops      string
	MaxTokens     int
	ContextLength int
	Temperature   float64
	TopP          float64
	RetryAttempts int
	RetryInterval time.Duration

	StoppingToken      string
	StoppingCondition  func(string) bool
	DynamicTemperature bool
	AutoGeneratePrompt bool
	Interactive        bool
	CustomExitCommand  string
	LoopInterval       time.Duration
	OutputType         string
	UserName           string

	LongTermMemory memory.LongTermMemory
	Tools          *tool.Registry
	Evaluator      Evaluator
	Input          InteractiveInput
}

// New constructs an Agent, refusing to build one missing an LLM binding or
// with a zero MaxLoops/MaxTokens/ContextLength, per spec.md §4.1.
func New(cfg Config) (*Agent, error) {
	name := cfg.Name
	if name == "" {
		name = "Agent"
	}
	if cfg.LLM == nil {
		return nil, newAgentError(name, "New", "LLM binding is required", nil)
	}
	if cfg.MaxLoops == "" {
		return nil, newAgentError(name, "New", "max loops is required", nil)
	}
	if cfg.MaxLoops != AutoLoops {
		n, err := strconv.Atoi(cfg.MaxLoops)
		if err != nil || n <= 0 {
			return nil, newAgentError(name, "New", "max loops must be a positive integer or \"auto\"", nil)
		}
	}
	if cfg.MaxTokens <= 0 {
		return nil, newAgentError(name, "New", "max tokens must be set", nil)
	}
	if cfg.ContextLength <= 0 {
		return nil, newAgentError(name, "New", "context length must be set", nil)
	}

	userName := cfg.UserName
	if userName == "" {
		userName = conversation.DefaultUserRole
	}
	exitCmd := cfg.CustomExitCommand
	if exitCmd == "" {
		exitCmd = "exit"
	}
	outputType := cfg.OutputType
	if outputType == "" {
		outputType = OutputString
	}
	retryAttempts := cfg.RetryAttempts
	if retryAttempts <= 0 {
		retryAttempts = 1
	}

	ltm := cfg.LongTermMemory
	if ltm == nil {
		ltm = memory.NullMemory{}
	}

	mem, err := conversation.New(uuid.NewString())
	if err != nil {
		return nil, newAgentError(name, "New", "failed to create short memory", err)
	}

	a := &Agent{
		ID:                 uuid.NewString(),
		Name:               name,
		Description:        cfg.Description,
		LLM:                cfg.LLM,
		SystemPrompt:       cfg.SystemPrompt,
		MaxLoops:           cfg.MaxLoops,
		MaxTokens:          cfg.MaxTokens,
		ContextLength:      cfg.ContextLength,
		Temperature:        cfg.Temperature,
		TopP:               cfg.TopP,
		RetryAttempts:      retryAttempts,
		RetryInterval:      cfg.RetryInterval,
		StoppingToken:      cfg.StoppingToken,
		StoppingCondition:  cfg.StoppingCondition,
		DynamicTemperature: cfg.DynamicTemperature,
		AutoGeneratePrompt: cfg.AutoGeneratePrompt,
		Interactive:        cfg.Interactive,
		CustomExitCommand:  exitCmd,
		LoopInterval:       cfg.LoopInterval,
		OutputType:         outputType,
		UserName:           userName,
		ShortMemory:        mem,
		LongTermMemory:     ltm,
		Tools:              cfg.Tools,
		Evaluator:          cfg.Evaluator,
		Input:              cfg.Input,
		rng:                rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if counter, err := utils.NewTokenCounter(""); err == nil {
		a.tokens = counter
	}

	if a.SystemPrompt != "" {
		if _, err := a.ShortMemory.Append(conversation.RoleSystem, a.SystemPrompt); err != nil {
			return nil, newAgentError(name, "New", "failed to seed system prompt", err)
		}
	}

	if cfg.Tools != nil && cfg.Tools.Count() > 0 {
		if _, err := a.ShortMemory.Append(conversation.RoleSystem, cfg.Tools.SchemaMessage()); err != nil {
			return nil, newAgentError(name, "New", "failed to append tool schema", err)
		}
	}

	return a, nil
}

// Run executes the bounded loop described in spec.md §4.1 and returns the
// output shaped per OutputType.
func (a *Agent) Run(ctx context.Context, task string) (interface{}, error) {
	if a.AutoGeneratePrompt {
		if err := a.regenerateSystemPrompt(ctx, task); err != nil {
			return nil, err
		}
	}

	if _, err := a.ShortMemory.Append(a.UserName, task); err != nil {
		return nil, newAgentError(a.Name, "Run", "failed to append task", err)
	}

	if a.LongTermMemory != nil {
		if docs, err := a.LongTermMemory.Query(ctx, task, 3); err == nil && len(docs) > 0 {
			var b strings.Builder
			for i, d := range docs {
				if i > 0 {
					b.WriteString("\n")
				}
				b.WriteString(d.Content)
			}
			_, _ = a.ShortMemory.Append(conversation.RoleDatabase, b.String())
		}
	}

	var outputs []string

	auto := a.MaxLoops == AutoLoops
	maxLoops := 1
	if !auto {
		maxLoops, _ = strconv.Atoi(a.MaxLoops)
	}

	for loop := 1; auto || loop <= maxLoops; loop++ {
		select {
		case <-ctx.Done():
			return a.shapeOutput(outputs), ctx.Err()
		default:
		}

		temperature := a.Temperature
		if a.DynamicTemperature {
			temperature = a.rng.Float64()
		}

		a.trimToContextLength()
		prompt := a.ShortMemory.Render()

		text, err := retry.Do(ctx, "Agent:"+a.Name, a.RetryAttempts, a.RetryInterval, func(attempt int) (string, error) {
			messages := []llm.Message{{Role: "user", Content: prompt}}
			raw, err := a.LLM.Complete(ctx, messages, llm.Options{
				Temperature: temperature,
				TopP:        a.TopP,
				MaxTokens:   a.MaxTokens,
			})
			if err != nil {
				return "", err
			}
			return llm.UnwrapEnvelope(raw), nil
		})
		if err != nil {
			return a.shapeOutput(outputs), newAgentError(a.Name, "Run", "LLM call failed after retries", err)
		}

		if _, err := a.ShortMemory.Append(a.Name, text); err != nil {
			return a.shapeOutput(outputs), newAgentError(a.Name, "Run", "failed to append agent turn", err)
		}
		outputs = append(outputs, text)

		if a.Tools != nil && a.Tools.Count() > 0 {
			calls, parseErr := tool.ParseCalls(text)
			if parseErr == nil && len(calls) > 0 {
				result := tool.Dispatch(ctx, a.Tools, calls)
				resultText := stringifyResult(result)
				if _, err := a.ShortMemory.Append(conversation.RoleToolExecutor, resultText); err != nil {
					return a.shapeOutput(outputs), newAgentError(a.Name, "Run", "failed to append tool result", err)
				}
			}
		}

		if a.Evaluator != nil {
			evalOut, err := a.Evaluator(ctx, text)
			if err == nil {
				_, _ = a.ShortMemory.Append(conversation.RoleEvaluator, evalOut)
			}
		}

		if a.shouldStop(text) {
			break
		}

		if a.Interactive {
			if a.Input == nil {
				break
			}
			line, ok := a.Input()
			if !ok || line == a.CustomExitCommand {
				break
			}
			if _, err := a.ShortMemory.Append(a.UserName, line); err != nil {
				return a.shapeOutput(outputs), newAgentError(a.Name, "Run", "failed to append interactive turn", err)
			}
		}

		if a.LoopInterval > 0 {
			timer := time.NewTimer(a.LoopInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return a.shapeOutput(outputs), ctx.Err()
			case <-timer.C:
			}
		}
	}

	return a.shapeOutput(outputs), nil
}

// trimToContextLength drops the oldest non-system turns from ShortMemory
// until the rendered prompt, plus headroom for MaxTokens of expected output,
// fits within ContextLength. A no-op when no TokenCounter could be built;
// trimming stops, even over budget, once only the seeded system turns and
// the newest turn remain. Grounded on spec.md §3's ContextLength
// policy field, using the same tiktoken-go budget math utils.TokenCounter
// already provides for the rest of the module.
func (a *Agent) trimToContextLength() {
	if a.tokens == nil || a.ContextLength <= 0 {
		return
	}
	keep := a.systemPrefixLen()
	budget := a.ContextLength - a.MaxTokens
	if budget <= 0 {
		budget = a.ContextLength
	}
	for a.tokens.Count(a.ShortMemory.Render()) > budget {
		if !a.ShortMemory.DropOldestAfter(keep) {
			return
		}
	}
}

// systemPrefixLen returns the count of leading system-role turns (the seeded
// SystemPrompt and/or tool schema message), which trimToContextLength never
// drops.
func (a *Agent) systemPrefixLen() int {
	n := 0
	for _, t := range a.ShortMemory.All() {
		if t.Role != conversation.RoleSystem {
			break
		}
		n++
	}
	return n
}

// shouldStop evaluates the termination conditions of spec.md §4.1 step 5h.
func (a *Agent) shouldStop(output string) bool {
	if a.StoppingToken != "" && strings.Contains(output, a.StoppingToken) {
		return true
	}
	if a.StoppingCondition != nil && a.StoppingCondition(output) {
		return true
	}
	if strings.Contains(output, "<DONE>") {
		return true
	}
	return false
}

// regenerateSystemPrompt synthesizes a SystemPrompt by asking the LLM to
// produce one for the given task, combined with the agent's own
// name/description/existing prompt when present. Only fires when no prior
// SystemPrompt exists, per spec.md §4.1 step 1.
func (a *Agent) regenerateSystemPrompt(ctx context.Context, task string) error {
	if a.SystemPrompt != "" {
		return nil
	}
	seed := strings.TrimSpace(a.Name + " " + a.Description + " " + a.SystemPrompt)
	prompt := fmt.Sprintf("Write a concise system prompt for an agent named %q (%s) to accomplish this task: %s", a.Name, seed, task)
	text, err := a.LLM.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.Options{Temperature: 0.3, MaxTokens: a.MaxTokens})
	if err != nil {
		return newAgentError(a.Name, "regenerateSystemPrompt", "failed to synthesize system prompt", err)
	}
	a.SystemPrompt = llm.UnwrapEnvelope(text)
	_, err = a.ShortMemory.Append(conversation.RoleSystem, a.SystemPrompt)
	return err
}

// shapeOutput formats accumulated loop outputs per OutputType.
func (a *Agent) shapeOutput(outputs []string) interface{} {
	switch a.OutputType {
	case OutputList:
		return outputs
	case OutputDict, OutputJSON, OutputYAML:
		return map[string]interface{}{"agent_output": outputs}
	default: // OutputString, OutputStr, and anything else default to joined string
		return strings.Join(outputs, "\n")
	}
}

func stringifyResult(result map[string]interface{}) string {
	if r, ok := result["result"]; ok {
		return fmt.Sprintf("%v", r)
	}
	if summary, ok := result["summary"]; ok {
		return fmt.Sprintf("%v", summary)
	}
	return fmt.Sprintf("%v", result)
}
