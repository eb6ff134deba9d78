// Package whiteboard holds the shared run state: the append-only, size-capped
// message log plus everything the specialist agents read and write during one
// run. The state is exclusively owned by the currently executing step - the
// supervisor hands each step a deep-copy snapshot and applies the returned
// updates atomically, so no two components ever mutate the same State value
// concurrently.
package whiteboard

import (
	"encoding/json"
	"fmt"

	"inquest/internal/types"
)

// DefaultMessageCap bounds message-log growth. When the cap is exceeded the
// log keeps the earliest headRetain entries (original context) plus the most
// recent cap-headRetain; middle messages are permanently discarded, not
// summarized.
const (
	DefaultMessageCap = 50
	headRetain        = 5
)

// State is the full runtime state of one inquest run. It is created at run
// start and discarded at run end; there is no cross-run persistence. All
// fields are JSON-serializable so the run can be suspended at a HITL pause
// and reconstructed later.
type State struct {
	// User query
	OriginalQuery  string `json:"original_query"`
	ClarifiedQuery string `json:"clarified_query,omitempty"`

	// Task planning
	Plan          *types.TaskPlan `json:"task_plan,omitempty"`
	CurrentTaskID string          `json:"current_task_id,omitempty"`

	// Shared whiteboard
	Messages   []types.AgentMessage `json:"messages"`
	MessageCap int                  `json:"message_cap"`

	// Retrieved evidence
	RetrievedChunks    []types.FusedChunk `json:"retrieved_chunks"`
	ResearchIterations int                `json:"research_iterations"`

	// Critique
	Critique      *types.CritiqueResult `json:"critique,omitempty"`
	SkepticRounds int                   `json:"skeptic_rounds"`

	// Output
	Citations     []types.Citation   `json:"citations,omitempty"`
	DraftResponse string             `json:"draft_response,omitempty"`
	FinalReport   *types.FinalReport `json:"final_report,omitempty"`

	// HITL
	HITLRequest   *types.HITLRequest `json:"hitl_request,omitempty"`
	HITLResponse  string             `json:"hitl_response,omitempty"`
	AwaitingHuman bool               `json:"awaiting_human"`

	// Control flow
	NextAgent      types.AgentRole `json:"next_agent,omitempty"`
	ShouldEnd      bool            `json:"should_end"`
	Capped         bool            `json:"capped"`
	ErrorLog       []string        `json:"error_log,omitempty"`
	IterationCount int             `json:"iteration_count"`
}

// New creates an empty run state for a query.
func New(query string, messageCap int) *State {
	if messageCap <= headRetain {
		messageCap = DefaultMessageCap
	}
	return &State{
		OriginalQuery: query,
		MessageCap:    messageCap,
	}
}

// Append adds messages to the whiteboard log, preserving chronological order
// and applying the compaction policy when the cap is exceeded.
func (s *State) Append(msgs ...types.AgentMessage) {
	s.Messages = append(s.Messages, msgs...)
	cap := s.MessageCap
	if cap <= headRetain {
		cap = DefaultMessageCap
	}
	if len(s.Messages) <= cap {
		return
	}
	tail := cap - headRetain
	compacted := make([]types.AgentMessage, 0, cap)
	compacted = append(compacted, s.Messages[:headRetain]...)
	compacted = append(compacted, s.Messages[len(s.Messages)-tail:]...)
	s.Messages = compacted
}

// RecordError appends a run-level error to the error log.
func (s *State) RecordError(format string, args ...any) {
	s.ErrorLog = append(s.ErrorLog, fmt.Sprintf(format, args...))
}

// QueryText returns the clarified query if present, else the original.
func (s *State) QueryText() string {
	if s.ClarifiedQuery != "" {
		return s.ClarifiedQuery
	}
	return s.OriginalQuery
}

// CurrentTask returns the task named by CurrentTaskID, or nil.
func (s *State) CurrentTask() *types.SubTask {
	if s.Plan == nil || s.CurrentTaskID == "" {
		return nil
	}
	return s.Plan.Task(s.CurrentTaskID)
}

// CompleteCurrentTask marks the current task completed with the given result,
// if it exists and is still in progress.
func (s *State) CompleteCurrentTask(result string) {
	task := s.CurrentTask()
	if task == nil {
		return
	}
	if task.Status == types.TaskInProgress {
		task.Status = types.TaskCompleted
	}
	if result != "" {
		task.Result = result
	}
}

// Snapshot returns a deep copy of the state via a JSON round-trip. The copy
// is what a specialist step receives; the original stays with the supervisor.
func (s *State) Snapshot() (*State, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize run state: %w", err)
	}
	var out State
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to deserialize run state: %w", err)
	}
	return &out, nil
}

// Serialize encodes the state for suspension across a HITL pause.
func (s *State) Serialize() ([]byte, error) {
	return json.Marshal(s)
}

// Restore reconstructs a suspended state.
func Restore(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to restore run state: %w", err)
	}
	return &s, nil
}
