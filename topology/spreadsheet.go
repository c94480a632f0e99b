package topology

import (
	"context"
	"encoding/csv"
	"os"
	"sync"
	"time"

	"github.com/swarmkit/swarmkit/swarm"
)

// SpreadSheetRow describes one agent's fixed task for a SpreadSheet run,
// optionally loaded from a CSV where each row names an agent and its task, per
// spec.md §4.7.
type SpreadSheetRow struct {
	AgentName string
	Task      string
}

// SpreadSheet is the parallel fan-out topology specialized for batch
// execution: MaxLoops x len(agents) work units, each a fixed per-agent
// task, results appended to a CSV and a JSON metadata file.
type SpreadSheet struct {
	swarm.Base
	Rows     []SpreadSheetRow
	CSVPath  string
	JSONPath string
}

// NewSpreadSheet validates base and builds rows from Base.Agents paired
// with the given default task, one row per agent.
func NewSpreadSheet(base swarm.Base, defaultTask string) (*SpreadSheet, error) {
	if err := base.ReliabilityCheck(); err != nil {
		return nil, err
	}
	rows := make([]SpreadSheetRow, len(base.Agents))
	for i, a := range base.Agents {
		rows[i] = SpreadSheetRow{AgentName: a.Name, Task: defaultTask}
	}
	return &SpreadSheet{Base: base, Rows: rows}, nil
}

// LoadCSV overrides Rows from a CSV file with columns name, description,
// system_prompt, task (description and system_prompt are accepted for
// schema completeness but only name/task are used to schedule a work
// unit — agent construction from CSV metadata is the caller's concern).
func (s *SpreadSheet) LoadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return NewError("SpreadSheet", "LoadCSV", "failed to open csv "+path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return NewError("SpreadSheet", "LoadCSV", "failed to parse csv "+path, err)
	}
	if len(records) == 0 {
		return nil
	}

	header := records[0]
	nameIdx, taskIdx := -1, -1
	for i, h := range header {
		switch h {
		case "name":
			nameIdx = i
		case "task":
			taskIdx = i
		}
	}
	if nameIdx == -1 || taskIdx == -1 {
		return NewError("SpreadSheet", "LoadCSV", "csv must have name and task columns", nil)
	}

	rows := make([]SpreadSheetRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, SpreadSheetRow{AgentName: rec[nameIdx], Task: rec[taskIdx]})
	}
	s.Rows = rows
	return nil
}

// Run schedules MaxLoops x len(Rows) work units in parallel: each unit runs
// its configured agent against its configured task once. Results append to
// CSVPath (if set) under swarm.AppendCSVRow's process-wide lock, and a JSON metadata file is
// written to JSONPath (if set).
func (s *SpreadSheet) Run(ctx context.Context) (*swarm.RunMetadata, error) {
	metadata := swarm.NewRunMetadata("SpreadSheetSwarm", "")

	var wg sync.WaitGroup
	var mu sync.Mutex

	for loop := 0; loop < max1(s.Base.MaxLoops); loop++ {
		for _, row := range s.Rows {
			a := s.Base.AgentByName(row.AgentName)
			if a == nil {
				continue
			}
			wg.Add(1)
			go func(row SpreadSheetRow, a agentHandle) {
				defer wg.Done()
				start := time.Now()
				out, err := a.Run(ctx, row.Task)
				ao := swarm.AgentOutput{AgentName: row.AgentName, Task: row.Task, StartTime: start, EndTime: time.Now()}
				if err != nil {
					ao.Error = err.Error()
				} else {
					ao.Output = asString(out)
				}
				ao.DurationS = ao.EndTime.Sub(ao.StartTime).Seconds()

				mu.Lock()
				metadata.Add(ao)
				mu.Unlock()

				if s.CSVPath != "" {
					_ = swarm.AppendCSVRow(s.CSVPath, metadata.RunID, ao)
				}
			}(row, a)
		}
	}
	wg.Wait()
	metadata.Finish()

	if s.JSONPath != "" {
		if err := metadata.SaveJSON(s.JSONPath); err != nil {
			return metadata, err
		}
	}
	return metadata, nil
}

// agentHandle is the minimal Run capability SpreadSheet dispatches against.
type agentHandle interface {
	Run(ctx context.Context, task string) (interface{}, error)
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
