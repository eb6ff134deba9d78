// Package plan schedules sub-tasks from a dependency-ordered task plan and
// validates plans before the orchestrator accepts them.
package plan

import (
	"errors"
	"fmt"

	"inquest/internal/types"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrCycle is returned by Validate when the dependency graph cannot be
// topologically ordered.
var ErrCycle = errors.New("task plan contains a dependency cycle")

// =============================================================================
// SCHEDULING
// =============================================================================

// FindNextTask selects the first pending task, in insertion order, whose
// dependencies have all completed, flips it to in_progress, and returns it.
// Returns nil when no task is runnable. Because selection mutates status, a
// second call without other plan mutation returns nil.
func FindNextTask(p *types.TaskPlan) *types.SubTask {
	if p == nil {
		return nil
	}

	completed := make(map[string]bool, len(p.SubTasks))
	for _, t := range p.SubTasks {
		if t.Status == types.TaskCompleted {
			completed[t.ID] = true
		}
	}

	for i := range p.SubTasks {
		t := &p.SubTasks[i]
		if t.Status != types.TaskPending {
			continue
		}
		ready := true
		for _, dep := range t.DependsOn {
			if !completed[dep] {
				ready = false
				break
			}
		}
		if ready {
			t.Status = types.TaskInProgress
			return t
		}
	}
	return nil
}

// Remaining reports how many tasks have not yet completed or failed.
func Remaining(p *types.TaskPlan) int {
	if p == nil {
		return 0
	}
	n := 0
	for _, t := range p.SubTasks {
		if t.Status == types.TaskPending || t.Status == types.TaskInProgress {
			n++
		}
	}
	return n
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks a plan at acceptance time so that scheduling can never
// stall on a malformed graph later. It rejects empty plans, unknown or
// self-referential dependencies, dependency cycles, plans where a skeptic
// task precedes every researcher task, and plans without exactly one
// synthesizer task.
func Validate(p *types.TaskPlan) error {
	if p == nil || len(p.SubTasks) == 0 {
		return errors.New("task plan has no sub-tasks")
	}

	known := make(map[string]bool, len(p.SubTasks))
	for _, t := range p.SubTasks {
		if t.ID == "" {
			return errors.New("task plan contains a task with an empty ID")
		}
		if known[t.ID] {
			return fmt.Errorf("duplicate task ID %q", t.ID)
		}
		known[t.ID] = true
	}

	for _, t := range p.SubTasks {
		for _, dep := range t.DependsOn {
			if dep == t.ID {
				return fmt.Errorf("task %q depends on itself", t.ID)
			}
			if !known[dep] {
				return fmt.Errorf("task %q depends on unknown task %q", t.ID, dep)
			}
		}
	}

	if err := checkAcyclic(p.SubTasks); err != nil {
		return err
	}

	sawResearcher := false
	synthesizers := 0
	for _, t := range p.SubTasks {
		switch t.AssignedTo {
		case types.RoleResearcher:
			sawResearcher = true
		case types.RoleSkeptic:
			if !sawResearcher {
				return fmt.Errorf("skeptic task %q precedes all researcher tasks", t.ID)
			}
		case types.RoleSynthesizer:
			synthesizers++
		}
	}
	if !sawResearcher {
		return errors.New("task plan has no researcher task")
	}
	if synthesizers != 1 {
		return fmt.Errorf("task plan needs exactly one synthesizer task, found %d", synthesizers)
	}
	return nil
}

// checkAcyclic runs Kahn's algorithm over the dependency graph. If the
// in-degree-zero frontier empties before every task is scheduled, the
// remainder forms a cycle.
func checkAcyclic(tasks []types.SubTask) error {
	inDegree := make(map[string]int, len(tasks))
	for _, t := range tasks {
		inDegree[t.ID] = len(t.DependsOn)
	}

	scheduled := make(map[string]bool, len(tasks))
	for len(scheduled) < len(tasks) {
		var frontier []string
		for _, t := range tasks {
			if !scheduled[t.ID] && inDegree[t.ID] == 0 {
				frontier = append(frontier, t.ID)
			}
		}
		if len(frontier) == 0 {
			return ErrCycle
		}
		for _, id := range frontier {
			scheduled[id] = true
			for i := range tasks {
				for _, dep := range tasks[i].DependsOn {
					if dep == id {
						inDegree[tasks[i].ID]--
					}
				}
			}
		}
	}
	return nil
}
