package agent

import (
	"encoding/json"
	"os"
	"time"

	"github.com/swarmkit/swarmkit/conversation"
)

// State is the explicit, declared set of safely-serializable Agent fields:
// strings, numbers, booleans, timestamps, and the turn history. Live
// collaborators (LLM binding, LongTermMemory, Tools) are never walked or
// persisted; a caller re-attaches them after Load, per spec.md §4.1
// "Persistence" and the DESIGN NOTES replacement for reflection-based
// dynamic-attribute serialization.
type State struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Description        string           `json:"description"`
	SystemPrompt       string           `json:"system_prompt"`
	MaxLoops           string           `json:"max_loops"`
	MaxTokens          int              `json:"max_tokens"`
	ContextLength      int              `json:"context_length"`
	Temperature        float64          `json:"temperature"`
	TopP               float64          `json:"top_p"`
	RetryAttempts      int              `json:"retry_attempts"`
	RetryInterval      time.Duration    `json:"retry_interval"`
	StoppingToken      string           `json:"stopping_token"`
	DynamicTemperature bool             `json:"dynamic_temperature"`
	AutoGeneratePrompt bool             `json:"auto_generate_prompt"`
	Interactive        bool             `json:"interactive"`
	CustomExitCommand  string           `json:"custom_exit_command"`
	OutputType         string           `json:"output_type"`
	UserName           string           `json:"user_name"`
	Turns              []conversation.Turn `json:"turns"`
	SavedAt            time.Time        `json:"saved_at"`
}

// Snapshot captures the agent's safe fields, excluding live collaborators.
func (a *Agent) Snapshot() State {
	return State{
		ID:                 a.ID,
		Name:               a.Name,
		Description:        a.Description,
		SystemPrompt:       a.SystemPrompt,
		MaxLoops:           a.MaxLoops,
		MaxTokens:          a.MaxTokens,
		ContextLength:      a.ContextLength,
		Temperature:        a.Temperature,
		TopP:               a.TopP,
		RetryAttempts:      a.RetryAttempts,
		RetryInterval:      a.RetryInterval,
		StoppingToken:      a.StoppingToken,
		DynamicTemperature: a.DynamicTemperature,
		AutoGeneratePrompt: a.AutoGeneratePrompt,
		Interactive:        a.Interactive,
		CustomExitCommand:  a.CustomExitCommand,
		OutputType:         a.OutputType,
		UserName:           a.UserName,
		Turns:              a.ShortMemory.All(),
		SavedAt:            time.Now(),
	}
}

// Save writes a JSON snapshot of the agent's safe fields to path.
func (a *Agent) Save(path string) error {
	data, err := json.MarshalIndent(a.Snapshot(), "", "  ")
	if err != nil {
		return newAgentError(a.Name, "Save", "failed to marshal state", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newAgentError(a.Name, "Save", "failed to write state file "+path, err)
	}
	return nil
}

// LoadState reads a State snapshot from path. The caller re-attaches live
// collaborators (LLM, LongTermMemory, Tools) to a new Agent built from it.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newAgentError("", "LoadState", "failed to read state file "+path, err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, newAgentError("", "LoadState", "failed to unmarshal state", err)
	}
	return &s, nil
}

// Restore replays a loaded State's turns into the agent's ShortMemory and
// copies its safe scalar fields, after the caller has constructed a fresh
// Agent with live collaborators via New.
func (a *Agent) Restore(s *State) error {
	a.ID = s.ID
	a.Name = s.Name
	a.Description = s.Description
	a.SystemPrompt = s.SystemPrompt
	a.MaxLoops = s.MaxLoops
	a.MaxTokens = s.MaxTokens
	a.ContextLength = s.ContextLength
	a.Temperature = s.Temperature
	a.TopP = s.TopP
	a.RetryAttempts = s.RetryAttempts
	a.RetryInterval = s.RetryInterval
	a.StoppingToken = s.StoppingToken
	a.DynamicTemperature = s.DynamicTemperature
	a.AutoGeneratePrompt = s.AutoGeneratePrompt
	a.Interactive = s.Interactive
	a.CustomExitCommand = s.CustomExitCommand
	a.OutputType = s.OutputType
	a.UserName = s.UserName

	a.ShortMemory.Clear()
	for _, t := range s.Turns {
		if _, err := a.ShortMemory.Append(t.Role, t.Content); err != nil {
			return newAgentError(a.Name, "Restore", "failed to replay turn", err)
		}
	}
	return nil
}
