package topology

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/swarmkit/swarmkit/agent"
	"github.com/swarmkit/swarmkit/swarm"
)

// Message is one turn's worth of dialogue from a single agent.
type Message struct {
	AgentName         string
	Role              string
	Content           string
	TurnNumber        int
	PrecedingContext  string
}

// Turn groups every response spoken during one round of the dialogue.
type Turn struct {
	Responses []Message
}

// SpeakerFn decides whether agent should speak next, given the recent
// message history.
type SpeakerFn func(recent []Message, a *agent.Agent) bool

// GroupChat is the turn-based dialogue executor of spec.md §4.11.
type GroupChat struct {
	swarm.Base
	Speaker SpeakerFn
	rng     *rand.Rand
}

// NewGroupChat validates base and returns a GroupChat with the given
// speaker-selection function (defaults to RoundRobinSpeaker).
func NewGroupChat(base swarm.Base, speaker SpeakerFn) (*GroupChat, error) {
	if err := base.ReliabilityCheck(); err != nil {
		return nil, err
	}
	if speaker == nil {
		speaker = RoundRobinSpeaker
	}
	return &GroupChat{Base: base, Speaker: speaker, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}, nil
}

// RoundRobinSpeaker lets every agent speak every turn.
func RoundRobinSpeaker(recent []Message, a *agent.Agent) bool { return true }

// ExpertiseSpeaker lets an agent speak when its system prompt shares a
// keyword with the last message.
func ExpertiseSpeaker(recent []Message, a *agent.Agent) bool {
	if len(recent) == 0 {
		return true
	}
	last := strings.ToLower(recent[len(recent)-1].Content)
	for _, word := range strings.Fields(strings.ToLower(a.SystemPrompt)) {
		if len(word) > 3 && strings.Contains(last, word) {
			return true
		}
	}
	return false
}

// RandomSpeaker flips a coin.
func (g *GroupChat) RandomSpeaker(recent []Message, a *agent.Agent) bool {
	return g.rng.Intn(2) == 0
}

// MostRecentSpeaker lets the agent that just spoke continue.
func MostRecentSpeaker(recent []Message, a *agent.Agent) bool {
	if len(recent) == 0 {
		return false
	}
	return recent[len(recent)-1].AgentName == a.Name
}

// Run executes up to MaxLoops rounds; each round, every agent is offered the
// floor via Speaker and, if selected, speaks once.
func (g *GroupChat) Run(ctx context.Context, task string) ([]Turn, *swarm.RunMetadata, error) {
	metadata := swarm.NewRunMetadata("GroupChat", task)
	var turns []Turn
	var history []Message

	for turnNum := 0; turnNum < g.Base.MaxLoops; turnNum++ {
		var responses []Message
		for _, a := range g.Base.Agents {
			select {
			case <-ctx.Done():
				metadata.Finish()
				return turns, metadata, ctx.Err()
			default:
			}
			if !g.Speaker(history, a) {
				continue
			}

			promptCtx := groupContext(a.Name, g.Base.AgentNames(), history, task)
			start := time.Now()
			out, err := a.Run(ctx, promptCtx)
			ao := swarm.AgentOutput{AgentName: a.Name, Task: promptCtx, StartTime: start, EndTime: time.Now()}
			if err != nil {
				ao.Error = err.Error()
				ao.DurationS = ao.EndTime.Sub(ao.StartTime).Seconds()
				metadata.Add(ao)
				continue
			}
			content := asString(out)
			ao.Output = content
			ao.DurationS = ao.EndTime.Sub(ao.StartTime).Seconds()
			metadata.Add(ao)

			msg := Message{AgentName: a.Name, Role: a.Name, Content: content, TurnNumber: turnNum, PrecedingContext: promptCtx}
			responses = append(responses, msg)
			history = append(history, msg)
		}
		turns = append(turns, Turn{Responses: responses})
	}
	metadata.Finish()
	return turns, metadata, nil
}

// RunBatched runs a GroupChat dialogue over each task in tasks serially.
func (g *GroupChat) RunBatched(ctx context.Context, tasks []string) ([][]Turn, error) {
	out := make([][]Turn, len(tasks))
	for i, t := range tasks {
		turns, _, err := g.Run(ctx, t)
		if err != nil {
			return out, err
		}
		out[i] = turns
	}
	return out, nil
}

// RunConcurrent runs independent GroupChat dialogues over tasks in parallel.
func (g *GroupChat) RunConcurrent(ctx context.Context, tasks []string) [][]Turn {
	out := make([][]Turn, len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t string) {
			defer wg.Done()
			turns, _, _ := g.Run(ctx, t)
			out[i] = turns
		}(i, t)
	}
	wg.Wait()
	return out
}

func groupContext(speaker string, peers []string, history []Message, task string) string {
	var b strings.Builder
	b.WriteString("You are " + speaker + " in a group chat with: " + strings.Join(peers, ", ") + ".\n")
	b.WriteString("Task: " + task + "\n")
	if len(history) > 0 {
		b.WriteString("History:\n")
		for _, m := range history {
			b.WriteString(m.AgentName + " (turn " + strconv.Itoa(m.TurnNumber) + "): " + m.Content + "\n")
		}
	}
	return b.String()
}
