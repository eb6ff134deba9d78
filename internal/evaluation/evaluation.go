// Package evaluation grades finished reports with an LLM judge across four
// metrics: faithfulness, relevance, completeness, and citation quality.
package evaluation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"inquest/internal/llm"
	"inquest/internal/types"
)

const judgeSystem = "You are a strict but fair evaluation judge. Return structured scores."

// =============================================================================
// TYPES
// =============================================================================

// MetricScore is one judged metric.
type MetricScore struct {
	MetricName string   `json:"metric_name"`
	Score      float64  `json:"score"`
	Reasoning  string   `json:"reasoning"`
	Issues     []string `json:"issues,omitempty"`
}

// Result is the complete evaluation of a run.
type Result struct {
	Query           string      `json:"query"`
	Faithfulness    MetricScore `json:"faithfulness"`
	Relevance       MetricScore `json:"relevance"`
	Completeness    MetricScore `json:"completeness"`
	CitationQuality MetricScore `json:"citation_quality"`
	OverallScore    float64     `json:"overall_score"`
	Grade           string      `json:"grade"`
	Summary         string      `json:"summary"`
}

// =============================================================================
// EVALUATOR
// =============================================================================

// Evaluator judges reports with the primary model tier.
type Evaluator struct {
	client llm.Client
	logger *zap.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(client llm.Client, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{client: client, logger: logger}
}

// Evaluate runs all four metrics against a report. A metric whose judge call
// fails scores zero with the failure recorded, so one bad call cannot sink
// the whole evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, report *types.FinalReport, evidenceText string) Result {
	response := renderResponse(report)

	faithfulness := e.judge(ctx, faithfulnessPrompt(report.Query, response, clip(evidenceText, 4000)))
	relevance := e.judge(ctx, relevancePrompt(report.Query, response))
	completeness := e.judge(ctx, completenessPrompt(report.Query, response))
	citationQuality := e.judge(ctx, citationQualityPrompt(report.Query, response, len(report.Citations)))

	overall := 0.35*faithfulness.Score +
		0.25*relevance.Score +
		0.25*completeness.Score +
		0.15*citationQuality.Score
	grade := GradeForScore(overall)

	e.logger.Info("evaluation complete",
		zap.Float64("overall", overall),
		zap.String("grade", grade))

	return Result{
		Query:           report.Query,
		Faithfulness:    faithfulness,
		Relevance:       relevance,
		Completeness:    completeness,
		CitationQuality: citationQuality,
		OverallScore:    overall,
		Grade:           grade,
		Summary: fmt.Sprintf(
			"Overall: %s (%.0f%%). Faithfulness: %.0f%%, Relevance: %.0f%%, Completeness: %.0f%%, Citations: %.0f%%.",
			grade, overall*100, faithfulness.Score*100, relevance.Score*100,
			completeness.Score*100, citationQuality.Score*100),
	}
}

func (e *Evaluator) judge(ctx context.Context, prompt string) MetricScore {
	score, err := llm.GenerateStructured[MetricScore](ctx, e.client, judgeSystem, prompt)
	if err != nil {
		e.logger.Warn("metric evaluation failed", zap.Error(err))
		return MetricScore{
			MetricName: "error",
			Score:      0.0,
			Reasoning:  fmt.Sprintf("Evaluation failed: %v", err),
			Issues:     []string{err.Error()},
		}
	}
	// Clamp out-of-range judge scores rather than trusting them.
	if score.Score < 0 {
		score.Score = 0
	}
	if score.Score > 1 {
		score.Score = 1
	}
	return score
}

// GradeForScore maps an overall score to a letter grade.
func GradeForScore(score float64) string {
	switch {
	case score >= 0.9:
		return "A"
	case score >= 0.8:
		return "B"
	case score >= 0.7:
		return "C"
	case score >= 0.6:
		return "D"
	default:
		return "F"
	}
}

func renderResponse(report *types.FinalReport) string {
	var b strings.Builder
	b.WriteString(report.ExecutiveSummary)
	b.WriteString("\n\n")
	b.WriteString(report.DetailedAnalysis)
	if len(report.Recommendations) > 0 {
		b.WriteString("\n\nRecommendations:\n")
		for _, r := range report.Recommendations {
			b.WriteString("- " + r + "\n")
		}
	}
	return clip(b.String(), 4000)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
