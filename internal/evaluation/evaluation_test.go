package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inquest/internal/types"
)

// judgeClient routes by the metric name mentioned in the prompt.
type judgeClient struct {
	scores map[string]float64
	err    error
}

func (c *judgeClient) Complete(_ context.Context, _, userPrompt string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	for name, score := range c.scores {
		if strings.Contains(userPrompt, strings.ToUpper(name)) {
			return fmt.Sprintf(`{"metric_name": %q, "score": %g, "reasoning": "scripted"}`, name, score), nil
		}
	}
	return "", errors.New("unmatched judge prompt")
}

func sampleReport() *types.FinalReport {
	return &types.FinalReport{
		Query:            "What was revenue growth?",
		ExecutiveSummary: "Revenue grew 15% [Source 1].",
		DetailedAnalysis: "The filing shows 15% growth to $4.5B [Source 1].",
		Recommendations:  []string{"Track the next quarter"},
		Citations:        []types.Citation{{ID: "cite-1"}},
	}
}

func TestEvaluate_WeightedOverallAndGrade(t *testing.T) {
	client := &judgeClient{scores: map[string]float64{
		"faithfulness":     0.9,
		"relevance":        1,
		"completeness":     0.8,
		"citation quality": 0.8,
	}}
	ev := NewEvaluator(client, nil)

	result := ev.Evaluate(context.Background(), sampleReport(), "Revenue grew 15% to $4.5B")

	expected := 0.35*0.9 + 0.25*1.0 + 0.25*0.8 + 0.15*0.8
	assert.InDelta(t, expected, result.OverallScore, 1e-12)
	assert.Equal(t, "B", result.Grade)
	assert.Contains(t, result.Summary, "Overall: B")
	assert.Equal(t, 0.9, result.Faithfulness.Score)
}

func TestEvaluate_JudgeFailureScoresZero(t *testing.T) {
	ev := NewEvaluator(&judgeClient{err: errors.New("judge offline")}, nil)
	result := ev.Evaluate(context.Background(), sampleReport(), "")

	assert.Equal(t, 0.0, result.OverallScore)
	assert.Equal(t, "F", result.Grade)
	require.NotEmpty(t, result.Faithfulness.Issues)
	assert.Equal(t, "error", result.Faithfulness.MetricName)
}

func TestGradeForScore(t *testing.T) {
	cases := []struct {
		score float64
		grade string
	}{
		{0.95, "A"}, {0.9, "A"}, {0.85, "B"}, {0.72, "C"}, {0.6, "D"}, {0.3, "F"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.grade, GradeForScore(tc.score))
	}
}
