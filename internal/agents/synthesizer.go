package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"inquest/internal/citation"
	"inquest/internal/llm"
	"inquest/internal/types"
	"inquest/internal/whiteboard"
)

const (
	maxSynthesisChunks   = 12
	maxSynthesisChunkLen = 600
	maxSynthFindingsLen  = 5000
	maxCritiqueLen       = 2000
)

// =============================================================================
// SYNTHESIZER
// =============================================================================

// Synthesizer produces the final report: sectioned narrative, citations
// linked to retrieved chunks, and the aggregated confidence breakdown.
// Uses the primary model tier so the user-facing answer gets the strongest
// reasoning available.
type Synthesizer struct {
	client llm.Client
	logger *zap.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(client llm.Client, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{client: client, logger: logger}
}

// Execute drafts the final report from findings, critique, and evidence, and
// ends the run.
func (s *Synthesizer) Execute(ctx context.Context, st *whiteboard.State) error {
	findings := collectByRole(st.Messages, types.RoleResearcher, "(No research available)")
	critiqueText := collectByRole(st.Messages, types.RoleSkeptic, "(No critique available)")
	evidence := formatSourcedEvidence(st.RetrievedChunks)

	userPrompt := fmt.Sprintf(`ORIGINAL QUERY: %s

RESEARCH FINDINGS:
%s

SKEPTIC CRITIQUE:
%s

AVAILABLE EVIDENCE:
%s

Now produce the final report:`, st.QueryText(), clip(findings, maxSynthFindingsLen), clip(critiqueText, maxCritiqueLen), evidence)

	response, err := s.client.Complete(ctx, synthesizerSystem, userPrompt)
	if err != nil {
		return fmt.Errorf("synthesizer draft: %w", err)
	}

	sections := parseSections(response)
	citations := citation.BuildCitations(response, st.RetrievedChunks)
	breakdown := citation.ComputeConfidence(st.Critique, citations, len(st.RetrievedChunks))
	level := types.LevelForScore(breakdown.FinalScore)

	report := &types.FinalReport{
		Query:            st.QueryText(),
		ExecutiveSummary: sections.executiveSummary(response),
		DetailedAnalysis: sections.detailedAnalysis(response),
		Recommendations:  sections.recommendations(),
		Citations:        citations,
		Confidence:       level,
		AuditTrail:       append([]types.AgentMessage(nil), st.Messages...),
		Metadata: types.ReportMetadata{
			ResearchIterations:   st.ResearchIterations,
			SkepticRounds:        st.SkepticRounds,
			TotalChunksRetrieved: len(st.RetrievedChunks),
			Confidence:           breakdown,
			Capped:               st.Capped,
		},
	}

	st.DraftResponse = response
	st.FinalReport = report
	st.Citations = citations
	st.ShouldEnd = true
	st.CompleteCurrentTask("Final report generated")

	msg := types.NewMessage(types.RoleSynthesizer, fmt.Sprintf(
		"Final report generated. Confidence: %s. Citations: %d.", level, len(citations)))
	msg.Citations = citations
	st.Append(msg)

	s.logger.Debug("synthesis complete",
		zap.String("confidence", string(level)),
		zap.Int("citations", len(citations)),
		zap.Float64("score", breakdown.FinalScore))
	return nil
}

func collectByRole(msgs []types.AgentMessage, role types.AgentRole, fallback string) string {
	var parts []string
	for _, m := range msgs {
		if m.Sender == role {
			parts = append(parts, m.Content)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, "\n\n")
}

// formatSourcedEvidence numbers chunks the same way FormatContext does, so
// "[Source N]" markers in the drafted narrative resolve to the same indices
// the citation builder uses.
func formatSourcedEvidence(chunks []types.FusedChunk) string {
	if len(chunks) == 0 {
		return "(No evidence)"
	}
	if len(chunks) > maxSynthesisChunks {
		chunks = chunks[:maxSynthesisChunks]
	}
	var parts []string
	for i, ch := range chunks {
		parts = append(parts, fmt.Sprintf("[Source %d: %s | ID: %s]\n%s",
			i+1, ch.Chunk.SourceDocument, ch.Chunk.ChunkID, clip(ch.Chunk.Content, maxSynthesisChunkLen)))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// =============================================================================
// SECTION PARSING
// =============================================================================

var sectionHeaders = []string{
	"EXECUTIVE SUMMARY",
	"DETAILED ANALYSIS",
	"RECOMMENDATIONS",
	"CONFIDENCE ASSESSMENT",
	"EVIDENCE GAPS",
}

type reportSections map[string]string

// parseSections splits a drafted report on its uppercase section headers.
// Headers may carry a trailing colon and content on the same line. Text
// before the first header is ignored; missing sections are empty.
func parseSections(text string) reportSections {
	sections := make(reportSections)
	current := ""
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		upper := strings.ToUpper(stripped)

		matched := false
		for _, header := range sectionHeaders {
			if strings.HasPrefix(upper, header) {
				current = header
				rest := strings.TrimSpace(strings.TrimPrefix(stripped[len(header):], ":"))
				if rest != "" {
					sections[current] = rest + "\n"
				}
				matched = true
				break
			}
		}
		if !matched && current != "" {
			sections[current] += line + "\n"
		}
	}
	for k, v := range sections {
		sections[k] = strings.TrimSpace(v)
	}
	return sections
}

// executiveSummary falls back to the head of the raw draft when the model
// skipped the header.
func (rs reportSections) executiveSummary(raw string) string {
	if s := rs["EXECUTIVE SUMMARY"]; s != "" {
		return s
	}
	return clip(strings.TrimSpace(raw), 500)
}

func (rs reportSections) detailedAnalysis(raw string) string {
	if s := rs["DETAILED ANALYSIS"]; s != "" {
		return s
	}
	return strings.TrimSpace(raw)
}

func (rs reportSections) recommendations() []string {
	var recs []string
	for _, line := range strings.Split(rs["RECOMMENDATIONS"], "\n") {
		r := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*• \t"))
		if r != "" {
			recs = append(recs, r)
		}
	}
	return recs
}
