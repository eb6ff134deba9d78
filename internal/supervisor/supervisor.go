// Package supervisor is the orchestration state machine: it decomposes a
// query into a task plan, routes tasks to specialist roles, handles retries
// and skeptic loop-backs, pauses for human input, and force-terminates at
// the iteration ceiling.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"inquest/internal/citation"
	"inquest/internal/config"
	"inquest/internal/hitl"
	"inquest/internal/llm"
	"inquest/internal/plan"
	"inquest/internal/types"
	"inquest/internal/whiteboard"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNoPlan means routing was entered without a task plan. This is fatal to
// the run: there is nothing to route.
var ErrNoPlan = errors.New("no task plan exists")

// ErrPauseUnresolved means the run paused for human input and no answer
// arrived. The serialized state remains valid for a later resume.
var ErrPauseUnresolved = errors.New("human-in-the-loop pause unresolved")

// =============================================================================
// SUPERVISOR
// =============================================================================

// Specialist is a role the supervisor can route a task to.
type Specialist interface {
	Execute(ctx context.Context, st *whiteboard.State) error
}

// Supervisor owns the run loop. Specialists receive a snapshot of the run
// state; their updates are applied atomically only when they succeed.
type Supervisor struct {
	primary     llm.Client
	specialists map[types.AgentRole]Specialist
	responder   hitl.Responder
	cfg         *config.Config
	logger      *zap.Logger
}

// New creates a supervisor. The responder may be nil, in which case an HITL
// pause cannot be resolved and the run stays paused.
func New(primary llm.Client, specialists map[types.AgentRole]Specialist, responder hitl.Responder, cfg *config.Config, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		primary:     primary,
		specialists: specialists,
		responder:   responder,
		cfg:         cfg,
		logger:      logger,
	}
}

// =============================================================================
// PLANNING
// =============================================================================

// planTask is the wire shape of one decomposed task.
type planTask struct {
	ID          string   `json:"task_id"`
	Description string   `json:"description"`
	AssignedTo  string   `json:"assigned_to"`
	DependsOn   []string `json:"depends_on"`
	Status      string   `json:"status"`
}

type planPayload struct {
	SubTasks []planTask `json:"sub_tasks"`
}

// Plan rewrites the query for clarity and decomposes it into a validated
// task plan. A plan that fails validation is re-prompted once with the
// validation error; a second failure fails the planning phase.
func (s *Supervisor) Plan(ctx context.Context, st *whiteboard.State) error {
	// Rewrite whatever the best current phrasing is; after an HITL resume
	// that includes the human's clarification.
	clarified, err := s.primary.Complete(ctx, queryRewriteSystem, st.QueryText())
	if err != nil {
		return fmt.Errorf("query rewrite: %w", err)
	}
	clarified = strings.TrimSpace(clarified)
	if clarified == "" {
		clarified = st.OriginalQuery
	}
	st.ClarifiedQuery = clarified

	taskPlan, err := s.decompose(ctx, clarified, "")
	if err != nil {
		var fixErr error
		taskPlan, fixErr = s.decompose(ctx, clarified, err.Error())
		if fixErr != nil {
			return fmt.Errorf("task decomposition: %w", fixErr)
		}
	}
	st.Plan = taskPlan

	// A task the planner could not pin down without the user turns the run
	// into an HITL pause before any specialist executes.
	if s.cfg.HITL.Enabled {
		for _, t := range taskPlan.SubTasks {
			if t.Status == types.TaskNeedsHumanInput {
				st.HITLRequest = &types.HITLRequest{
					Reason:         "Query is ambiguous and needs clarification before planning can proceed",
					Question:       t.Description,
					ContextSummary: "Original query: " + st.OriginalQuery,
				}
				st.AwaitingHuman = true
				st.Append(types.NewMessage(types.RoleSupervisor, fmt.Sprintf(
					"Created task plan with %d sub-tasks. Human input required: %s",
					len(taskPlan.SubTasks), t.Description)))
				return nil
			}
		}
	}

	st.Append(types.NewMessage(types.RoleSupervisor, fmt.Sprintf(
		"Decomposed query into %d sub-tasks.", len(taskPlan.SubTasks))))
	s.logger.Info("plan accepted",
		zap.String("plan_id", taskPlan.PlanID),
		zap.Int("tasks", len(taskPlan.SubTasks)))
	return nil
}

func (s *Supervisor) decompose(ctx context.Context, clarified, previousError string) (*types.TaskPlan, error) {
	userPrompt := "User query: " + clarified
	if previousError != "" {
		userPrompt += "\n\nYour previous plan was rejected: " + previousError +
			"\nProduce a corrected plan."
	}

	payload, err := llm.GenerateStructured[planPayload](ctx, s.primary, decompositionSystem, userPrompt)
	if err != nil {
		return nil, err
	}

	taskPlan := types.NewTaskPlan(clarified)
	for _, pt := range payload.SubTasks {
		role := types.AgentRole(strings.ToLower(strings.TrimSpace(pt.AssignedTo)))
		if role != types.RoleResearcher && role != types.RoleSkeptic && role != types.RoleSynthesizer {
			return nil, fmt.Errorf("task %q assigned to unknown role %q", pt.Description, pt.AssignedTo)
		}
		id := strings.TrimSpace(pt.ID)
		if id == "" {
			id = "task-" + uuid.NewString()[:8]
		}
		status := types.TaskPending
		if types.TaskStatus(pt.Status) == types.TaskNeedsHumanInput {
			status = types.TaskNeedsHumanInput
		}
		taskPlan.SubTasks = append(taskPlan.SubTasks, types.SubTask{
			ID:          id,
			Description: pt.Description,
			AssignedTo:  role,
			Status:      status,
			DependsOn:   pt.DependsOn,
		})
	}

	if err := plan.Validate(taskPlan); err != nil {
		return nil, err
	}
	return taskPlan, nil
}

// =============================================================================
// ROUTING
// =============================================================================

// Route decides the next step after planning or a specialist pass. Priority
// order: iteration ceiling, failed-task retry, skeptic loop-back, next
// runnable task, termination. Entering routing without a plan is fatal.
func (s *Supervisor) Route(st *whiteboard.State) error {
	if st.Plan == nil {
		st.RecordError("routing entered with no task plan")
		st.ShouldEnd = true
		return ErrNoPlan
	}

	if st.IterationCount >= s.cfg.Agents.MaxIterations {
		st.ShouldEnd = true
		st.Capped = true
		st.Append(types.NewMessage(types.RoleSupervisor, fmt.Sprintf(
			"Max iterations (%d) reached. Forcing completion.", s.cfg.Agents.MaxIterations)))
		return nil
	}

	// A current task still marked in_progress after its specialist returned
	// finished without an explicit completion; close it out.
	if task := st.CurrentTask(); task != nil && task.Status == types.TaskInProgress {
		task.Status = types.TaskCompleted
	}

	for i := range st.Plan.SubTasks {
		task := &st.Plan.SubTasks[i]
		if task.Status == types.TaskFailed && task.Retries < s.cfg.Agents.MaxTaskRetries {
			task.Retries++
			task.Status = types.TaskInProgress
			st.CurrentTaskID = task.ID
			st.NextAgent = task.AssignedTo
			st.IterationCount++
			st.Append(types.NewMessage(types.RoleSupervisor, fmt.Sprintf(
				"Retrying task %s (attempt %d): %s", task.ID, task.Retries, task.Description)))
			return nil
		}
	}

	if st.Critique != nil && !st.Critique.PassesReview && st.SkepticRounds < s.cfg.Agents.MaxSkepticRounds {
		gaps := issueSummary(st.Critique.Issues, 3)

		gapTask := types.NewSubTask("Address skeptic concerns: "+gaps, types.RoleResearcher)
		gapTask.Status = types.TaskInProgress
		revalidate := types.NewSubTask("Re-validate after additional research", types.RoleSkeptic, gapTask.ID)
		st.Plan.SubTasks = append(st.Plan.SubTasks, gapTask, revalidate)

		st.CurrentTaskID = gapTask.ID
		st.NextAgent = types.RoleResearcher
		st.IterationCount++
		st.Critique = nil
		st.Append(types.NewMessage(types.RoleSupervisor,
			"Skeptic found issues. Sending back to Researcher: "+gaps))
		return nil
	}

	next := plan.FindNextTask(st.Plan)
	if next == nil {
		st.ShouldEnd = true
		st.IterationCount++
		st.Append(types.NewMessage(types.RoleSupervisor, "All sub-tasks completed. Ending pipeline."))
		return nil
	}

	st.CurrentTaskID = next.ID
	st.NextAgent = next.AssignedTo
	st.IterationCount++
	st.Append(types.NewMessage(types.RoleSupervisor, fmt.Sprintf(
		"Routing to %s: %s", next.AssignedTo, next.Description)))
	return nil
}

func issueSummary(issues []types.CritiqueIssue, limit int) string {
	var parts []string
	for i, issue := range issues {
		if i >= limit {
			break
		}
		parts = append(parts, issue.Description)
	}
	if len(parts) == 0 {
		return "general quality concerns"
	}
	return strings.Join(parts, "; ")
}

// =============================================================================
// RUN LOOP
// =============================================================================

// Run executes the full pipeline for a query. A report is always produced:
// planning failure, task failures, and ceiling hits degrade the output
// rather than suppressing it. The only error returned alongside a report is
// an unresolved HITL pause.
func (s *Supervisor) Run(ctx context.Context, query string) (*whiteboard.State, error) {
	st := whiteboard.New(query, s.cfg.Agents.MessageLogCap)

	for {
		if err := s.Plan(ctx, st); err != nil {
			st.RecordError("planning failed: %v", err)
			s.logger.Error("planning failed", zap.Error(err))
			st.FinalReport = s.fallbackReport(st, "Planning failed: "+err.Error())
			return st, nil
		}
		if !st.AwaitingHuman {
			break
		}
		if err := s.resolvePause(ctx, st); err != nil {
			st.RecordError("hitl pause unresolved: %v", err)
			return st, fmt.Errorf("%w: %v", ErrPauseUnresolved, err)
		}
		// Resumed with the human's clarification: re-plan from scratch.
	}

	for !st.ShouldEnd {
		if err := s.Route(st); err != nil {
			break
		}
		if st.ShouldEnd {
			break
		}

		spec, ok := s.specialists[st.NextAgent]
		if !ok {
			st.RecordError("no specialist registered for role %s", st.NextAgent)
			st.ShouldEnd = true
			break
		}

		snap, err := st.Snapshot()
		if err != nil {
			st.RecordError("state snapshot failed: %v", err)
			st.ShouldEnd = true
			break
		}
		if err := spec.Execute(ctx, snap); err != nil {
			// Discard the snapshot; record the failure on the live state so
			// routing can retry the task.
			if task := st.CurrentTask(); task != nil {
				task.Status = types.TaskFailed
				task.Error = err.Error()
			}
			st.RecordError("task %s failed: %v", st.CurrentTaskID, err)
			s.logger.Warn("specialist failed",
				zap.String("role", string(st.NextAgent)),
				zap.String("task", st.CurrentTaskID),
				zap.Error(err))
			continue
		}
		st = snap
	}

	if st.FinalReport == nil {
		st.FinalReport = s.fallbackReport(st, "Run terminated before synthesis completed.")
	}
	st.FinalReport.Metadata.Capped = st.FinalReport.Metadata.Capped || st.Capped
	return st, nil
}

// resolvePause serializes the paused run, asks the responder, and folds the
// answer back in. The serialize/restore round trip guarantees the pause
// boundary stays reconstructible no matter how late the answer arrives.
func (s *Supervisor) resolvePause(ctx context.Context, st *whiteboard.State) error {
	if s.responder == nil || st.HITLRequest == nil {
		return hitl.ErrNoResponse
	}

	frozen, err := st.Serialize()
	if err != nil {
		return fmt.Errorf("serializing paused state: %w", err)
	}

	answer, err := s.responder.Ask(ctx, *st.HITLRequest)
	if err != nil {
		return err
	}

	restored, err := whiteboard.Restore(frozen)
	if err != nil {
		return fmt.Errorf("restoring paused state: %w", err)
	}
	*st = *restored

	reason := st.HITLRequest.Reason
	st.HITLResponse = answer
	st.AwaitingHuman = false
	st.HITLRequest = nil
	st.Plan = nil // full re-plan with the clarification folded in
	st.ClarifiedQuery = fmt.Sprintf("%s [User clarification: %s]", st.QueryText(), answer)

	msg := types.NewMessage(types.RoleHuman, answer)
	msg.Metadata = map[string]string{"hitl_reason": reason}
	st.Append(msg)
	return nil
}

// fallbackReport builds a degraded report from whatever the run produced.
func (s *Supervisor) fallbackReport(st *whiteboard.State, reason string) *types.FinalReport {
	detailed := st.DraftResponse
	if detailed == "" {
		detailed = collectFindings(st.Messages)
	}
	breakdown := citation.ComputeConfidence(st.Critique, st.Citations, len(st.RetrievedChunks))

	return &types.FinalReport{
		Query:            st.QueryText(),
		ExecutiveSummary: reason,
		DetailedAnalysis: detailed,
		Citations:        st.Citations,
		Confidence:       types.LevelForScore(breakdown.FinalScore),
		AuditTrail:       append([]types.AgentMessage(nil), st.Messages...),
		Metadata: types.ReportMetadata{
			ResearchIterations:   st.ResearchIterations,
			SkepticRounds:        st.SkepticRounds,
			TotalChunksRetrieved: len(st.RetrievedChunks),
			Confidence:           breakdown,
			Capped:               st.Capped,
		},
	}
}

func collectFindings(msgs []types.AgentMessage) string {
	var parts []string
	for _, m := range msgs {
		if m.Sender == types.RoleResearcher {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
