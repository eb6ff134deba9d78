package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"inquest/internal/llm"
	"inquest/internal/types"
	"inquest/internal/whiteboard"
)

// Evidence fed to the skeptic is bounded so one critique call cannot blow
// the context window.
const (
	maxSkepticChunks   = 15
	maxSkepticChunkLen = 500
	maxFindingsLen     = 4000
)

// =============================================================================
// SKEPTIC
// =============================================================================

// Skeptic validates research findings against the raw retrieved evidence:
// hallucinations, logical gaps, contradictions, weak or missing coverage.
// Uses the primary model tier.
type Skeptic struct {
	client llm.Client
	logger *zap.Logger
}

// NewSkeptic creates a skeptic.
func NewSkeptic(client llm.Client, logger *zap.Logger) *Skeptic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Skeptic{client: client, logger: logger}
}

// Execute critiques the accumulated research and stores a structured
// CritiqueResult on the state. With no research findings present the
// critique fails review outright rather than passing vacuously.
func (s *Skeptic) Execute(ctx context.Context, st *whiteboard.State) error {
	var research []types.AgentMessage
	for _, m := range st.Messages {
		if m.Sender == types.RoleResearcher {
			research = append(research, m)
		}
	}

	if len(research) == 0 {
		st.Critique = &types.CritiqueResult{
			OverallAssessment: "No research findings to evaluate.",
			PassesReview:      false,
			ConfidenceScore:   0.0,
		}
		st.SkepticRounds++
		st.Append(types.NewMessage(types.RoleSkeptic, "No research findings available to critique."))
		st.CompleteCurrentTask("No research findings to evaluate.")
		return nil
	}

	var findings strings.Builder
	for i, m := range research {
		if i > 0 {
			findings.WriteString("\n\n")
		}
		findings.WriteString(m.Content)
	}

	evidence := formatEvidence(st.RetrievedChunks, maxSkepticChunks, maxSkepticChunkLen)

	userPrompt := fmt.Sprintf(`ORIGINAL QUERY: %s

RESEARCH FINDINGS:
%s

RAW RETRIEVED EVIDENCE:
%s

%s

Now perform your critique:`, st.QueryText(), clip(findings.String(), maxFindingsLen), evidence, skepticFewShot)

	critique, err := llm.GenerateStructured[types.CritiqueResult](ctx, s.client, skepticSystem, userPrompt)
	if err != nil {
		return fmt.Errorf("skeptic critique: %w", err)
	}

	st.Critique = &critique
	st.SkepticRounds++
	st.CompleteCurrentTask(critique.OverallAssessment)

	verdict := "FAILED"
	if critique.PassesReview {
		verdict = "PASSED"
	}
	msg := types.NewMessage(types.RoleSkeptic, fmt.Sprintf(
		"Review %s (confidence: %.2f). Issues found: %d.",
		verdict, critique.ConfidenceScore, len(critique.Issues)))
	msg.Metadata = map[string]string{
		"passes_review": strconv.FormatBool(critique.PassesReview),
		"confidence":    fmt.Sprintf("%.2f", critique.ConfidenceScore),
		"issue_count":   strconv.Itoa(len(critique.Issues)),
	}
	st.Append(msg)

	s.logger.Debug("critique complete",
		zap.Bool("passes", critique.PassesReview),
		zap.Int("issues", len(critique.Issues)),
		zap.Int("round", st.SkepticRounds))
	return nil
}

// formatEvidence renders up to maxChunks retrieved chunks, each truncated,
// as a numbered evidence block.
func formatEvidence(chunks []types.FusedChunk, maxChunks, maxLen int) string {
	if len(chunks) == 0 {
		return "(No raw evidence available)"
	}
	if len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}
	var b strings.Builder
	for i, ch := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Evidence %d from %s]: %s", i+1, ch.Chunk.SourceDocument, clip(ch.Chunk.Content, maxLen))
	}
	return b.String()
}
