// Package agents implements the specialist roles the supervisor routes work
// to: researcher (evidence gathering), skeptic (critique), and synthesizer
// (final report). Each role mutates the run state it is handed; the
// supervisor owns snapshotting and state application.
package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"inquest/internal/config"
	"inquest/internal/llm"
	"inquest/internal/retrieval"
	"inquest/internal/types"
	"inquest/internal/whiteboard"
)

// Searcher is the retrieval surface the researcher calls.
type Searcher interface {
	HybridSearch(ctx context.Context, query string) ([]types.FusedChunk, error)
}

// =============================================================================
// RESEARCHER
// =============================================================================

// Researcher runs evidence gathering for the current sub-task: hybrid
// retrieval, a drafted findings summary, and a sufficiency check. Uses the
// secondary model tier; research is volume work, not deep reasoning.
type Researcher struct {
	client llm.Client
	search Searcher
	cfg    config.AgentConfig
	logger *zap.Logger
}

// NewResearcher creates a researcher.
func NewResearcher(client llm.Client, search Searcher, cfg config.AgentConfig, logger *zap.Logger) *Researcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Researcher{client: client, search: search, cfg: cfg, logger: logger}
}

// Execute performs one research pass. Once the research-iteration ceiling is
// reached it records a capped message and returns without searching, so the
// run proceeds on whatever evidence exists.
func (r *Researcher) Execute(ctx context.Context, st *whiteboard.State) error {
	if st.ResearchIterations >= r.cfg.MaxResearchIterations {
		msg := types.NewMessage(types.RoleResearcher,
			"Max research iterations reached. Proceeding with available evidence.")
		msg.Metadata = map[string]string{"capped": "true"}
		st.Append(msg)
		st.CompleteCurrentTask("Research capped; no further retrieval performed.")
		return nil
	}

	taskDesc := ""
	if task := st.CurrentTask(); task != nil {
		taskDesc = task.Description
	}

	searchQuery := strings.TrimSpace(st.ClarifiedQuery + " " + taskDesc)
	if searchQuery == "" {
		searchQuery = st.OriginalQuery
	}

	chunks, err := r.search.HybridSearch(ctx, searchQuery)
	if err != nil {
		return fmt.Errorf("researcher retrieval: %w", err)
	}

	contextBlock := "(No documents found in corpus)"
	if len(chunks) > 0 {
		contextBlock = retrieval.FormatContext(chunks)
	}

	userPrompt := fmt.Sprintf(`ORIGINAL QUERY: %s

SUB-TASK: %s

RETRIEVED CONTEXT:
%s`, st.QueryText(), orDefault(taskDesc, "General research"), contextBlock)

	findings, err := r.client.Complete(ctx, researcherSystem, userPrompt)
	if err != nil {
		return fmt.Errorf("researcher summary: %w", err)
	}

	sufficiency, err := r.client.Complete(ctx, sufficiencyCheck,
		fmt.Sprintf("Query: %s\n\nFindings:\n%s", st.QueryText(), clip(findings, 2000)))
	if err != nil {
		// The findings themselves are fine; treat an unavailable sufficiency
		// verdict as insufficient and let routing decide.
		r.logger.Warn("sufficiency check failed", zap.Error(err))
		sufficiency = "INSUFFICIENT: sufficiency check unavailable"
	}
	sufficient := strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sufficiency)), "SUFFICIENT")

	st.RetrievedChunks = append(st.RetrievedChunks, chunks...)
	st.ResearchIterations++
	st.CompleteCurrentTask(findings)

	msg := types.NewMessage(types.RoleResearcher, findings)
	msg.Metadata = map[string]string{
		"chunks_retrieved": strconv.Itoa(len(chunks)),
		"sufficient":       strconv.FormatBool(sufficient),
		"search_query":     searchQuery,
	}
	st.Append(msg)

	r.logger.Debug("research pass complete",
		zap.Int("chunks", len(chunks)),
		zap.Bool("sufficient", sufficient),
		zap.Int("iteration", st.ResearchIterations))
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
