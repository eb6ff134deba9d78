package citation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"inquest/internal/types"
)

// =============================================================================
// CITATION CONSTRUCTION
// =============================================================================

// defaultConfidence is assigned when a cited chunk carries no semantic
// relevance score.
const defaultConfidence = 0.5

// BuildCitations scans a synthesized narrative for "[Source N]" markers and
// links each distinct source number to the corresponding retrieved chunk.
// Source numbers are 1-based against the chunk list; the first occurrence of
// a number wins and out-of-range numbers are discarded.
func BuildCitations(narrative string, chunks []types.FusedChunk) []types.Citation {
	markers := ParseMarkers(narrative)
	if len(markers) == 0 {
		return nil
	}
	sentences := SplitSentences(narrative)

	seen := make(map[int]bool, len(markers))
	var citations []types.Citation
	for _, m := range markers {
		if seen[m.SourceNumber] {
			continue
		}
		seen[m.SourceNumber] = true

		idx := m.SourceNumber - 1
		if idx < 0 || idx >= len(chunks) {
			continue
		}
		chunk := chunks[idx]

		confidence := chunk.SemanticScore
		if confidence <= 0 {
			confidence = defaultConfidence
		}
		citations = append(citations, types.Citation{
			ID:         "cite-" + uuid.NewString()[:8],
			Claim:      enclosingSentence(sentences, m.Offset),
			Evidence:   []types.Chunk{chunk.Chunk},
			Confidence: confidence,
		})
	}
	return citations
}

// =============================================================================
// AUDIT
// =============================================================================

// Audit is the structural citation check over a finished report.
type Audit struct {
	TotalCitations    int      `json:"total_citations"`
	ValidCitations    int      `json:"valid_citations"`
	Issues            []string `json:"issues,omitempty"`
	OrphanedClaims    []string `json:"orphaned_claims,omitempty"`
	UncitedStatements []string `json:"uncited_statements,omitempty"`
	CoverageScore     float64  `json:"coverage_score"`
}

// Passes reports whether the audit is clean: no issues and coverage at or
// above the threshold.
func (a Audit) Passes(threshold float64) bool {
	return len(a.Issues) == 0 && a.CoverageScore >= threshold
}

// Engine validates reports against the chunks a run actually retrieved. It
// checks citation structure only; whether a claim faithfully represents its
// evidence is the critique role's concern.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an audit engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// ValidateReport audits every citation in the report against the retrieved
// chunks and flags factual-looking sentences in the detailed analysis that
// carry no source marker. The check is deterministic: auditing the same
// report twice yields the same result.
func (e *Engine) ValidateReport(report *types.FinalReport, retrieved []types.FusedChunk) Audit {
	known := make(map[string]bool, len(retrieved))
	for _, ch := range retrieved {
		known[ch.Chunk.ChunkID] = true
	}

	audit := Audit{TotalCitations: len(report.Citations)}
	for _, c := range report.Citations {
		if len(c.Evidence) == 0 {
			audit.Issues = append(audit.Issues, fmt.Sprintf("citation %s has no evidence", c.ID))
			audit.OrphanedClaims = append(audit.OrphanedClaims, c.Claim)
			continue
		}
		for _, ev := range c.Evidence {
			if !known[ev.ChunkID] {
				audit.Issues = append(audit.Issues,
					fmt.Sprintf("citation %s references unknown chunk %s", c.ID, ev.ChunkID))
				continue
			}
			audit.ValidCitations++
		}
	}

	for _, s := range SplitSentences(report.DetailedAnalysis) {
		text := strings.TrimSpace(s.Text)
		if looksFactual(text) && !markerPattern.MatchString(text) {
			audit.UncitedStatements = append(audit.UncitedStatements, text)
		}
	}

	audit.CoverageScore = float64(audit.ValidCitations) / float64(max(audit.TotalCitations, 1))
	e.logger.Debug("citation audit complete",
		zap.Int("total", audit.TotalCitations),
		zap.Int("valid", audit.ValidCitations),
		zap.Int("issues", len(audit.Issues)),
		zap.Float64("coverage", audit.CoverageScore))
	return audit
}

// =============================================================================
// CONFIDENCE AGGREGATION
// =============================================================================

// ComputeConfidence folds critique confidence, citation ratio, and evidence
// coverage into the final weighted score. Weights are fixed for
// compatibility with downstream consumers of the breakdown.
func ComputeConfidence(critique *types.CritiqueResult, citations []types.Citation, chunkCount int) types.ConfidenceBreakdown {
	skeptic := 0.0
	if critique != nil {
		skeptic = critique.ConfidenceScore
	}

	distinct := make(map[string]bool)
	for _, c := range citations {
		for _, ev := range c.Evidence {
			distinct[ev.ChunkID] = true
		}
	}

	denom := float64(max(chunkCount, 1))
	ratio := min(float64(len(citations))/denom, 1.0)
	coverage := min(float64(len(distinct))/denom, 1.0)

	final := 0.60*skeptic + 0.25*ratio + 0.15*coverage
	return types.ConfidenceBreakdown{
		SkepticConfidence: skeptic,
		CitationRatio:     ratio,
		EvidenceCoverage:  coverage,
		FinalScore:        final,
	}
}
