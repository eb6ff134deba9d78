package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inquest/internal/config"
	"inquest/internal/types"
	"inquest/internal/whiteboard"
)

// scriptedClient returns canned responses in call order.
type scriptedClient struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (c *scriptedClient) Complete(_ context.Context, _ string, userPrompt string) (string, error) {
	c.prompts = append(c.prompts, userPrompt)
	if c.err != nil {
		return "", c.err
	}
	resp := c.responses[min(c.calls, len(c.responses)-1)]
	c.calls++
	return resp, nil
}

type fixedSearcher struct {
	chunks []types.FusedChunk
	err    error
	query  string
}

func (s *fixedSearcher) HybridSearch(_ context.Context, query string) ([]types.FusedChunk, error) {
	s.query = query
	return s.chunks, s.err
}

func evidenceChunk(id, content string, score float64) types.FusedChunk {
	return types.FusedChunk{
		Chunk:         types.Chunk{ChunkID: id, SourceDocument: id + ".txt", Content: content},
		SemanticScore: score,
	}
}

func stateWithTask(role types.AgentRole) *whiteboard.State {
	st := whiteboard.New("What was revenue growth?", 0)
	st.ClarifiedQuery = "What was the company's revenue growth in fiscal 2024?"
	st.Plan = types.NewTaskPlan(st.OriginalQuery)
	task := types.NewSubTask("Gather revenue figures", role)
	task.Status = types.TaskInProgress
	st.Plan.SubTasks = append(st.Plan.SubTasks, task)
	st.CurrentTaskID = task.ID
	return st
}

func agentCfg() config.AgentConfig {
	return config.DefaultConfig().Agents
}

// ===== RESEARCHER =====

func TestResearcher_NormalPass(t *testing.T) {
	searcher := &fixedSearcher{chunks: []types.FusedChunk{
		evidenceChunk("c1", "Revenue grew 15% to $4.5B", 0.9),
	}}
	client := &scriptedClient{responses: []string{
		"Key Findings: revenue grew 15% [Source 1].",
		"SUFFICIENT",
	}}
	st := stateWithTask(types.RoleResearcher)

	r := NewResearcher(client, searcher, agentCfg(), nil)
	require.NoError(t, r.Execute(context.Background(), st))

	assert.Contains(t, searcher.query, "fiscal 2024")
	assert.Contains(t, searcher.query, "Gather revenue figures")
	assert.Len(t, st.RetrievedChunks, 1)
	assert.Equal(t, 1, st.ResearchIterations)

	require.Len(t, st.Messages, 1)
	msg := st.Messages[0]
	assert.Equal(t, types.RoleResearcher, msg.Sender)
	assert.Equal(t, "1", msg.Metadata["chunks_retrieved"])
	assert.Equal(t, "true", msg.Metadata["sufficient"])

	task := st.Plan.Task(st.CurrentTaskID)
	require.NotNil(t, task)
	assert.Equal(t, types.TaskCompleted, task.Status)
	assert.Contains(t, task.Result, "15%")
}

func TestResearcher_IterationCapShortCircuits(t *testing.T) {
	searcher := &fixedSearcher{err: errors.New("must not be called")}
	client := &scriptedClient{err: errors.New("must not be called")}
	st := stateWithTask(types.RoleResearcher)
	st.ResearchIterations = agentCfg().MaxResearchIterations

	r := NewResearcher(client, searcher, agentCfg(), nil)
	require.NoError(t, r.Execute(context.Background(), st))

	require.Len(t, st.Messages, 1)
	assert.Equal(t, "true", st.Messages[0].Metadata["capped"])
	assert.Equal(t, agentCfg().MaxResearchIterations, st.ResearchIterations)
	assert.Empty(t, searcher.query, "retrieval must be skipped at the cap")
}

func TestResearcher_RetrievalFailureIsTaskError(t *testing.T) {
	searcher := &fixedSearcher{err: errors.New("store offline")}
	st := stateWithTask(types.RoleResearcher)

	r := NewResearcher(&scriptedClient{responses: []string{"x"}}, searcher, agentCfg(), nil)
	err := r.Execute(context.Background(), st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "researcher retrieval")
}

// ===== SKEPTIC =====

func TestSkeptic_NoResearchFailsReview(t *testing.T) {
	st := stateWithTask(types.RoleSkeptic)
	sk := NewSkeptic(&scriptedClient{responses: []string{"unused"}}, nil)

	require.NoError(t, sk.Execute(context.Background(), st))
	require.NotNil(t, st.Critique)
	assert.False(t, st.Critique.PassesReview)
	assert.Equal(t, 0.0, st.Critique.ConfidenceScore)
	assert.Equal(t, 1, st.SkepticRounds)
}

func TestSkeptic_StructuredCritique(t *testing.T) {
	client := &scriptedClient{responses: []string{`{
		"issues": [{
			"issue_type": "weak_evidence",
			"description": "Only one source supports the growth figure",
			"severity": "medium"
		}],
		"overall_assessment": "Mostly sound, thin sourcing.",
		"passes_review": true,
		"confidence_score": 0.74
	}`}}
	st := stateWithTask(types.RoleSkeptic)
	st.RetrievedChunks = []types.FusedChunk{evidenceChunk("c1", strings.Repeat("x", 800), 0.9)}
	st.Append(types.NewMessage(types.RoleResearcher, "Revenue grew 15% [Source 1]."))

	sk := NewSkeptic(client, nil)
	require.NoError(t, sk.Execute(context.Background(), st))

	require.NotNil(t, st.Critique)
	assert.True(t, st.Critique.PassesReview)
	assert.Equal(t, 0.74, st.Critique.ConfidenceScore)
	assert.Equal(t, 1, st.SkepticRounds)

	// Evidence in the prompt is truncated per chunk.
	require.Len(t, client.prompts, 1)
	assert.NotContains(t, client.prompts[0], strings.Repeat("x", 501))

	last := st.Messages[len(st.Messages)-1]
	assert.Equal(t, types.RoleSkeptic, last.Sender)
	assert.Equal(t, "true", last.Metadata["passes_review"])
	assert.Equal(t, "1", last.Metadata["issue_count"])
}

// ===== SYNTHESIZER =====

const sampleDraft = `EXECUTIVE SUMMARY:
Revenue grew 15% to $4.5B in fiscal 2024 [Source 1].

DETAILED ANALYSIS:
The filing reports revenue of $4.5B, up 15% year over year [Source 1].
Margin data was not retrieved.

RECOMMENDATIONS:
- Validate the margin trend with the next quarterly filing
- Track segment-level growth

CONFIDENCE ASSESSMENT:
MEDIUM. Single-source support for the headline figure.

EVIDENCE GAPS:
No margin or segment data in the corpus.`

func TestSynthesizer_BuildsFinalReport(t *testing.T) {
	st := stateWithTask(types.RoleSynthesizer)
	st.RetrievedChunks = []types.FusedChunk{
		evidenceChunk("c1", "Revenue grew 15% to $4.5B", 0.9),
		evidenceChunk("c2", "Operating costs were flat", 0.6),
	}
	st.Critique = &types.CritiqueResult{PassesReview: true, ConfidenceScore: 0.8}
	st.Append(types.NewMessage(types.RoleResearcher, "Findings with [Source 1]."))

	syn := NewSynthesizer(&scriptedClient{responses: []string{sampleDraft}}, nil)
	require.NoError(t, syn.Execute(context.Background(), st))

	require.NotNil(t, st.FinalReport)
	report := st.FinalReport
	assert.True(t, st.ShouldEnd)
	assert.Contains(t, report.ExecutiveSummary, "15%")
	assert.Contains(t, report.DetailedAnalysis, "$4.5B")
	assert.Equal(t, []string{
		"Validate the margin trend with the next quarterly filing",
		"Track segment-level growth",
	}, report.Recommendations)

	require.Len(t, report.Citations, 1, "only Source 1 is cited in the draft")
	assert.Equal(t, "c1", report.Citations[0].Evidence[0].ChunkID)

	// 0.60*0.8 + 0.25*(1/2) + 0.15*(1/2) = 0.68 -> medium
	assert.InDelta(t, 0.68, report.Metadata.Confidence.FinalScore, 1e-12)
	assert.Equal(t, types.ConfidenceMedium, report.Confidence)
	assert.Equal(t, 2, report.Metadata.TotalChunksRetrieved)
}

func TestSynthesizer_NoEvidenceStillProducesReport(t *testing.T) {
	st := stateWithTask(types.RoleSynthesizer)
	syn := NewSynthesizer(&scriptedClient{responses: []string{"A bare answer with no sections."}}, nil)

	require.NoError(t, syn.Execute(context.Background(), st))
	require.NotNil(t, st.FinalReport)
	assert.Equal(t, types.ConfidenceLow, st.FinalReport.Confidence)
	assert.Contains(t, st.FinalReport.ExecutiveSummary, "bare answer")
	assert.Empty(t, st.FinalReport.Citations)
}

func TestParseSections(t *testing.T) {
	sections := parseSections(sampleDraft)
	assert.Contains(t, sections["EXECUTIVE SUMMARY"], "Revenue grew 15%")
	assert.Contains(t, sections["DETAILED ANALYSIS"], "Margin data was not retrieved.")
	assert.Contains(t, sections["CONFIDENCE ASSESSMENT"], "MEDIUM")
	assert.NotContains(t, sections["CONFIDENCE ASSESSMENT"], "margin or segment",
		"evidence gaps must not bleed into the confidence section")
	assert.Contains(t, sections["EVIDENCE GAPS"], "No margin or segment data")
}
