// Package types defines the shared domain types that flow between the
// supervisor, the specialist agents, the retrieval layer, and the citation
// engine. Every object exchanged across a package boundary lives here so the
// audit trail stays serializable end to end.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ENUMS
// =============================================================================

// AgentRole identifies which specialist produced a message or owns a task.
type AgentRole string

const (
	RoleSupervisor  AgentRole = "supervisor"
	RoleResearcher  AgentRole = "researcher"
	RoleSkeptic     AgentRole = "skeptic"
	RoleSynthesizer AgentRole = "synthesizer"
	RoleHuman       AgentRole = "human"
)

// Valid reports whether the role is one of the known senders.
func (r AgentRole) Valid() bool {
	switch r {
	case RoleSupervisor, RoleResearcher, RoleSkeptic, RoleSynthesizer, RoleHuman:
		return true
	}
	return false
}

// TaskStatus is the lifecycle state of a SubTask.
type TaskStatus string

const (
	TaskPending         TaskStatus = "pending"
	TaskInProgress      TaskStatus = "in_progress"
	TaskCompleted       TaskStatus = "completed"
	TaskFailed          TaskStatus = "failed"
	TaskNeedsHumanInput TaskStatus = "needs_human_input"
)

// ConfidenceLevel buckets the aggregated confidence score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"   // >= 0.8
	ConfidenceMedium ConfidenceLevel = "medium" // 0.5 - 0.8
	ConfidenceLow    ConfidenceLevel = "low"    // < 0.5
)

// Severity grades a critique issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// =============================================================================
// EVIDENCE & CITATIONS
// =============================================================================

// Chunk is a single piece of evidence retrieved from the document corpus.
// ChunkID is content-addressed (source::index::contenthash) so citations
// remain valid for the lifetime of a run. Immutable once retrieved.
type Chunk struct {
	ChunkID        string            `json:"chunk_id"`
	SourceDocument string            `json:"source_document"`
	Content        string            `json:"content"`
	RelevanceScore float64           `json:"relevance_score"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// ScoredChunk pairs a chunk with the score assigned by one retrieval branch.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// FusedChunk is a chunk annotated with its combined score after reciprocal
// rank fusion. SemanticScore is the raw vector-similarity score when the
// chunk appeared in the semantic branch, zero otherwise.
type FusedChunk struct {
	Chunk
	FusedScore    float64 `json:"fused_score"`
	SemanticScore float64 `json:"semantic_score"`
}

// Citation links a specific claim in the synthesized narrative to the
// evidence chunks backing it. A citation with empty Evidence is an orphaned
// claim and must surface in the audit, never be dropped.
type Citation struct {
	ID         string  `json:"citation_id"`
	Claim      string  `json:"claim"`
	Evidence   []Chunk `json:"evidence"`
	Confidence float64 `json:"confidence"`
}

// NewCitationID returns a fresh citation identifier.
func NewCitationID() string {
	return "cite-" + uuid.NewString()[:8]
}

// =============================================================================
// TASK PLAN
// =============================================================================

// SubTask is a discrete unit of work created by the supervisor's planning
// step. Tasks are appended, never deleted; remediation after a failed review
// appends new tasks rather than rewriting the graph.
type SubTask struct {
	ID          string     `json:"task_id"`
	Description string     `json:"description"`
	AssignedTo  AgentRole  `json:"assigned_to"`
	Status      TaskStatus `json:"status"`
	DependsOn   []string   `json:"depends_on,omitempty"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	Retries     int        `json:"retries"`
}

// NewSubTask creates a pending task with a generated ID.
func NewSubTask(description string, role AgentRole, dependsOn ...string) SubTask {
	return SubTask{
		ID:          "task-" + uuid.NewString()[:8],
		Description: description,
		AssignedTo:  role,
		Status:      TaskPending,
		DependsOn:   dependsOn,
	}
}

// String implements fmt.Stringer for log lines.
func (t SubTask) String() string {
	return fmt.Sprintf("%s[%s->%s]", t.ID, t.Status, t.AssignedTo)
}

// TaskPlan is the DAG of sub-tasks for one run. Acyclicity is enforced at
// plan acceptance by plan.Validate, not re-checked on every mutation.
type TaskPlan struct {
	PlanID        string    `json:"plan_id"`
	OriginalQuery string    `json:"original_query"`
	SubTasks      []SubTask `json:"sub_tasks"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewTaskPlan creates an empty plan for the given query.
func NewTaskPlan(query string) *TaskPlan {
	return &TaskPlan{
		PlanID:        "plan-" + uuid.NewString()[:8],
		OriginalQuery: query,
		CreatedAt:     time.Now().UTC(),
	}
}

// Task returns the sub-task with the given ID, or nil.
func (p *TaskPlan) Task(id string) *SubTask {
	for i := range p.SubTasks {
		if p.SubTasks[i].ID == id {
			return &p.SubTasks[i]
		}
	}
	return nil
}

// =============================================================================
// CRITIQUE
// =============================================================================

// CritiqueIssue is a single defect found by the skeptic.
// Type is one of: hallucination, logical_gap, weak_evidence, contradiction,
// incomplete.
type CritiqueIssue struct {
	Type            string   `json:"issue_type"`
	Description     string   `json:"description"`
	AffectedClaim   string   `json:"affected_claim,omitempty"`
	Severity        Severity `json:"severity"`
	SuggestedAction string   `json:"suggested_action,omitempty"`
}

// CritiqueResult is the full output of one skeptic pass. PassesReview is a
// judgment delegated to the reasoning capability: true only absent
// high-severity issues and with acceptable overall quality.
type CritiqueResult struct {
	Issues            []CritiqueIssue `json:"issues"`
	OverallAssessment string          `json:"overall_assessment"`
	PassesReview      bool            `json:"passes_review"`
	ConfidenceScore   float64         `json:"confidence_score"`
}

// =============================================================================
// WHITEBOARD MESSAGES
// =============================================================================

// AgentMessage is one append-only entry on the shared whiteboard. Ordering is
// chronological and significant; the log is the audit trail included verbatim
// in the final report.
type AgentMessage struct {
	Sender    AgentRole         `json:"sender"`
	Content   string            `json:"content"`
	Citations []Citation        `json:"citations,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewMessage creates a timestamped message.
func NewMessage(sender AgentRole, content string) AgentMessage {
	return AgentMessage{
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// =============================================================================
// HITL
// =============================================================================

// HITLRequest asks a human for clarification before the run can proceed.
type HITLRequest struct {
	Reason         string   `json:"reason"`
	Question       string   `json:"question_to_user"`
	ContextSummary string   `json:"context_summary,omitempty"`
	Options        []string `json:"options,omitempty"`
}

// =============================================================================
// FINAL REPORT
// =============================================================================

// ConfidenceBreakdown records the inputs to the aggregated confidence score.
type ConfidenceBreakdown struct {
	SkepticConfidence float64 `json:"skeptic_confidence"`
	CitationRatio     float64 `json:"citation_ratio"`
	EvidenceCoverage  float64 `json:"evidence_coverage"`
	FinalScore        float64 `json:"final_score"`
}

// ReportMetadata summarizes how the run unfolded. Capped is set when the run
// was force-terminated by an iteration ceiling and the answer may be partial.
type ReportMetadata struct {
	ResearchIterations   int                 `json:"research_iterations"`
	SkepticRounds        int                 `json:"skeptic_rounds"`
	TotalChunksRetrieved int                 `json:"total_chunks_retrieved"`
	Confidence           ConfidenceBreakdown `json:"confidence_breakdown"`
	Capped               bool                `json:"capped,omitempty"`
}

// FinalReport is the structured artifact returned to the caller. It is always
// produced, possibly with low confidence and audit flags; the system degrades
// rather than failing hard.
type FinalReport struct {
	Query            string          `json:"query"`
	ExecutiveSummary string          `json:"executive_summary"`
	DetailedAnalysis string          `json:"detailed_analysis"`
	Recommendations  []string        `json:"recommendations"`
	Citations        []Citation      `json:"citations"`
	Confidence       ConfidenceLevel `json:"confidence"`
	AuditTrail       []AgentMessage  `json:"audit_trail"`
	Metadata         ReportMetadata  `json:"metadata"`
}

// LevelForScore maps an aggregated confidence score to its bucket.
func LevelForScore(score float64) ConfidenceLevel {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
