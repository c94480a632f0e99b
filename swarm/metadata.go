package swarm

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AgentOutput is one agent's recorded contribution to a run, per spec.md §3
// "TopologyMetadata".
type AgentOutput struct {
	AgentName  string    `json:"agent_name" csv:"AgentName"`
	Task       string    `json:"task" csv:"Task"`
	Output     string    `json:"output" csv:"Result"`
	Error      string    `json:"error,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	DurationS  float64   `json:"duration_sec"`
}

// RunMetadata is the per-run record persisted as JSON (autosave) or CSV
// (SpreadSheetSwarm), per spec.md §3.
type RunMetadata struct {
	RunID      string        `json:"run_id"`
	SwarmType  string        `json:"swarm_type"`
	Task       string        `json:"task"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Outputs    []AgentOutput `json:"outputs"`
	TasksDone  int           `json:"tasks_completed"`
	TasksFail  int           `json:"tasks_failed"`
}

// NewRunMetadata starts a new run record with a fresh run id.
func NewRunMetadata(swarmType, task string) *RunMetadata {
	return &RunMetadata{
		RunID:     uuid.NewString(),
		SwarmType: swarmType,
		Task:      task,
		StartTime: time.Now(),
	}
}

// Add records one agent's output and updates the aggregate counts.
func (m *RunMetadata) Add(out AgentOutput) {
	m.Outputs = append(m.Outputs, out)
	if out.Error != "" {
		m.TasksFail++
	} else {
		m.TasksDone++
	}
}

// Finish stamps the run's end time.
func (m *RunMetadata) Finish() {
	m.EndTime = time.Now()
}

// SaveJSON persists the metadata as a JSON file under path.
func (m *RunMetadata) SaveJSON(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return NewError("RunMetadata", "SaveJSON", "failed to marshal metadata", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return NewError("RunMetadata", "SaveJSON", "failed to write metadata file "+path, err)
	}
	return nil
}

// csvWriteMu serializes SpreadSheetSwarm CSV appends across all runs in this
// process so rows from concurrent agents are never interleaved within a
// line, per spec.md §4.7/§5 "SpreadSheet CSV writes".
var csvWriteMu sync.Mutex

// AppendCSVRow appends one row (RunId, AgentName, Task, Result, Timestamp)
// to path, writing a header first if the file does not yet exist. Guarded
// by a package-level lock for atomic-append semantics.
func AppendCSVRow(path, runID string, out AgentOutput) error {
	csvWriteMu.Lock()
	defer csvWriteMu.Unlock()

	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return NewError("RunMetadata", "AppendCSVRow", "failed to open csv file "+path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if needsHeader {
		if err := w.Write([]string{"RunId", "AgentName", "Task", "Result", "Timestamp"}); err != nil {
			return NewError("RunMetadata", "AppendCSVRow", "failed to write csv header", err)
		}
	}
	row := []string{runID, out.AgentName, out.Task, out.Output, out.EndTime.Format(time.RFC3339)}
	if err := w.Write(row); err != nil {
		return NewError("RunMetadata", "AppendCSVRow", "failed to write csv row", err)
	}
	return nil
}

// FormatOutputType reshapes a run's agent outputs per the spec's Output
// type enum: "all"/"string"/"str" joins every output with a newline;
// "list" returns the ordered slice; "dict" maps agent name to its last
// output; "final" returns the last stage's output; "json"/"yaml" wrap the
// dict form for the caller to serialize.
func FormatOutputType(outputType string, outputs []AgentOutput) interface{} {
	switch outputType {
	case OutputList:
		list := make([]string, len(outputs))
		for i, o := range outputs {
			list[i] = o.Output
		}
		return list
	case OutputDict, OutputJSON, OutputYAML:
		m := make(map[string]string, len(outputs))
		for _, o := range outputs {
			m[o.AgentName] = o.Output
		}
		return m
	case OutputFinal:
		if len(outputs) == 0 {
			return ""
		}
		return outputs[len(outputs)-1].Output
	default: // OutputAll, OutputString, OutputStr
		out := ""
		for i, o := range outputs {
			if i > 0 {
				out += "\n"
			}
			out += o.Output
		}
		return out
	}
}

func (o AgentOutput) String() string {
	return fmt.Sprintf("%s: %s", o.AgentName, o.Output)
}
