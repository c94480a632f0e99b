// Package conversation provides the append-only per-agent turn log that is
// rendered into LLM prompts. It generalizes the teacher's fixed
// {system,user,assistant} conversation roles to the arbitrary role strings
// a swarm needs (an agent's own name, "Database", "Tool Executor",
// "Evaluator", a configurable human user-name).
package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// MinMaxTurns is the minimum allowed turn cap.
	MinMaxTurns = 1
	// MaxMaxTurns is the maximum allowed turn cap.
	MaxMaxTurns = 10000
	// DefaultMaxTurns is used when a Conversation is created without an explicit cap.
	DefaultMaxTurns = 1000
)

// Well-known roles. An agent's own role is its name, a string supplied by
// the caller rather than a constant, since a swarm mints an arbitrary role
// per agent name.
const (
	RoleSystem        = "system"
	RoleToolExecutor  = "Tool Executor"
	RoleDatabase      = "Database"
	RoleEvaluator     = "Evaluator"
	DefaultUserRole   = "Human:"
)

// ConversationError represents errors in conversation operations.
type ConversationError struct {
	SessionID string
	Operation string
	Message   string
	Err       error
	Timestamp time.Time
}

func (e *ConversationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.SessionID, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.SessionID, e.Operation, e.Message)
}

func (e *ConversationError) Unwrap() error {
	return e.Err
}

func newConversationError(sessionID, operation, message string, err error) *ConversationError {
	return &ConversationError{SessionID: sessionID, Operation: operation, Message: message, Err: err, Timestamp: time.Now()}
}

// Turn represents a single entry in the conversation history.
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation manages ordered, append-only turn history for one Agent's
// ShortMemory. Insertion order is preserved; rendering concatenates turns in
// order with a "role: content" prefix.
type Conversation struct {
	mu          sync.RWMutex
	SessionID   string `json:"session_id"`
	Turns       []Turn `json:"turns"`
	MaxTurns    int    `json:"max_turns"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// New creates a Conversation with the default turn cap.
func New(sessionID string) (*Conversation, error) {
	return NewWithMax(sessionID, DefaultMaxTurns)
}

// NewWithMax creates a Conversation with an explicit turn cap.
func NewWithMax(sessionID string, maxTurns int) (*Conversation, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if maxTurns < MinMaxTurns || maxTurns > MaxMaxTurns {
		return nil, newConversationError(sessionID, "NewWithMax", "invalid max turns", nil)
	}
	now := time.Now()
	return &Conversation{
		SessionID:   sessionID,
		Turns:       make([]Turn, 0),
		MaxTurns:    maxTurns,
		CreatedAt:   now,
		LastUpdated: now,
	}, nil
}

// Append adds a turn under the given role. Role is an arbitrary string (an
// agent name, RoleDatabase, RoleToolExecutor, RoleEvaluator, or a configured
// user-name) per spec.
func (c *Conversation) Append(role, content string) (*Turn, error) {
	if role == "" {
		return nil, newConversationError(c.SessionID, "Append", "role cannot be empty", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	turn := Turn{
		ID:        fmt.Sprintf("turn_%s_%d", c.SessionID, time.Now().UnixNano()),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
	c.Turns = append(c.Turns, turn)
	c.trimIfNeeded()
	c.LastUpdated = time.Now()
	return &turn, nil
}

// Recent returns the last n turns (a defensive copy).
func (c *Conversation) Recent(n int) []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n <= 0 || len(c.Turns) == 0 {
		return []Turn{}
	}
	start := len(c.Turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(c.Turns[start:]))
	copy(out, c.Turns[start:])
	return out
}

// All returns every turn (a defensive copy).
func (c *Conversation) All() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Turn, len(c.Turns))
	copy(out, c.Turns)
	return out
}

// Render concatenates all turns into a single prompt string, one
// "role: content" line per turn, in insertion order.
func (c *Conversation) Render() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var b strings.Builder
	b.Grow(len(c.Turns) * 96)
	for _, t := range c.Turns {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// Len returns the number of turns currently retained.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Turns)
}

// Clear removes all turns.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Turns = make([]Turn, 0)
	c.LastUpdated = time.Now()
}

func (c *Conversation) trimIfNeeded() {
	if len(c.Turns) > c.MaxTurns {
		c.Turns = c.Turns[len(c.Turns)-c.MaxTurns:]
	}
}

// DropOldestAfter removes the oldest turn at index >= keep, preserving the
// first keep turns (typically the seeded system prompt). A no-op returning
// false when at most keep+1 turns remain, so the newest turn is never
// dropped. Used by an Agent to stay within its configured
// context budget without losing the system prompt it was constructed with.
func (c *Conversation) DropOldestAfter(keep int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Turns) <= keep+1 {
		return false
	}
	c.Turns = append(c.Turns[:keep], c.Turns[keep+1:]...)
	return true
}
