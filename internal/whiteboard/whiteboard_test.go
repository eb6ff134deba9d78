package whiteboard

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"inquest/internal/types"
)

func TestAppend_CapKeepsHeadAndTail(t *testing.T) {
	s := New("q", 50)
	for i := 0; i < 60; i++ {
		s.Append(types.NewMessage(types.RoleResearcher, fmt.Sprintf("msg-%d", i)))
	}

	if len(s.Messages) != 50 {
		t.Fatalf("expected exactly 50 messages after compaction, got %d", len(s.Messages))
	}
	// First 5 originally appended survive.
	for i := 0; i < 5; i++ {
		if want := fmt.Sprintf("msg-%d", i); s.Messages[i].Content != want {
			t.Errorf("head[%d] = %q, want %q", i, s.Messages[i].Content, want)
		}
	}
	// Remaining 45 are the most recent.
	if got, want := s.Messages[5].Content, "msg-15"; got != want {
		t.Errorf("first tail message = %q, want %q", got, want)
	}
	if got, want := s.Messages[49].Content, "msg-59"; got != want {
		t.Errorf("last message = %q, want %q", got, want)
	}
}

func TestAppend_PreservesOrderBelowCap(t *testing.T) {
	s := New("q", 50)
	for i := 0; i < 10; i++ {
		s.Append(types.NewMessage(types.RoleSkeptic, fmt.Sprintf("m%d", i)))
	}
	for i, m := range s.Messages {
		if want := fmt.Sprintf("m%d", i); m.Content != want {
			t.Errorf("message %d = %q, want %q", i, m.Content, want)
		}
	}
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	s := New("original", 50)
	s.Plan = types.NewTaskPlan("original")
	s.Plan.SubTasks = append(s.Plan.SubTasks, types.NewSubTask("research", types.RoleResearcher))
	s.Append(types.NewMessage(types.RoleSupervisor, "planned"))

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	snap.Plan.SubTasks[0].Status = types.TaskCompleted
	snap.Messages[0].Content = "mutated"

	if s.Plan.SubTasks[0].Status != types.TaskPending {
		t.Error("snapshot mutation leaked into original plan")
	}
	if s.Messages[0].Content != "planned" {
		t.Error("snapshot mutation leaked into original messages")
	}
}

func TestSerializeRestore_RoundTrip(t *testing.T) {
	s := New("what changed?", 50)
	s.ClarifiedQuery = "what changed in Q3?"
	s.IterationCount = 4
	s.AwaitingHuman = true
	s.HITLRequest = &types.HITLRequest{Reason: "ambiguous", Question: "which quarter?"}
	s.Append(types.NewMessage(types.RoleSupervisor, "paused"))

	data, err := s.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	restored, err := Restore(data)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if diff := cmp.Diff(s, restored); diff != "" {
		t.Errorf("restored state differs (-want +got):\n%s", diff)
	}
}

func TestCompleteCurrentTask(t *testing.T) {
	s := New("q", 50)
	s.Plan = types.NewTaskPlan("q")
	task := types.NewSubTask("gather", types.RoleResearcher)
	task.Status = types.TaskInProgress
	s.Plan.SubTasks = append(s.Plan.SubTasks, task)
	s.CurrentTaskID = task.ID

	s.CompleteCurrentTask("findings")

	got := s.Plan.Task(task.ID)
	if got.Status != types.TaskCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.Result != "findings" {
		t.Errorf("result = %q, want findings", got.Result)
	}
}

func TestQueryText(t *testing.T) {
	s := New("raw", 50)
	if s.QueryText() != "raw" {
		t.Errorf("QueryText = %q, want raw", s.QueryText())
	}
	s.ClarifiedQuery = "clear"
	if s.QueryText() != "clear" {
		t.Errorf("QueryText = %q, want clear", s.QueryText())
	}
}
