// Package retrieval fuses semantic and keyword search results into a single
// ranked evidence list using reciprocal rank fusion.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"inquest/internal/types"
)

// =============================================================================
// TYPES
// =============================================================================

// Backend is the search surface the fusion engine draws from. Both branches
// run against the same corpus.
type Backend interface {
	NearestNeighbors(ctx context.Context, query string, k int) ([]types.ScoredChunk, error)
	KeywordFilter(ctx context.Context, query string, k int) ([]types.ScoredChunk, error)
}

// Config controls branch depths and fusion behavior.
type Config struct {
	TopKSemantic int
	TopKKeyword  int
	TopKFinal    int
	RRFConstant  int
	CacheSize    int
	CacheTTL     time.Duration
}

// DefaultConfig returns fusion defaults.
func DefaultConfig() Config {
	return Config{
		TopKSemantic: 8,
		TopKKeyword:  5,
		TopKFinal:    6,
		RRFConstant:  60,
		CacheSize:    256,
		CacheTTL:     5 * time.Minute,
	}
}

// Engine runs hybrid retrieval. Identical queries within the cache TTL are
// served from memory without touching the backend.
type Engine struct {
	backend Backend
	cfg     Config
	cache   *QueryResultCache
	logger  *zap.Logger
}

// NewEngine creates a fusion engine over the given backend.
func NewEngine(backend Backend, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RRFConstant <= 0 {
		cfg.RRFConstant = 60
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Engine{
		backend: backend,
		cfg:     cfg,
		cache:   NewQueryResultCache(cfg.CacheSize, cfg.CacheTTL),
		logger:  logger,
	}
}

// =============================================================================
// HYBRID SEARCH
// =============================================================================

// HybridSearch runs the semantic and keyword branches concurrently, fuses
// their rankings, and returns the top results ordered for consumption by a
// long-context model. A keyword branch failure degrades to semantic-only
// results rather than failing the search.
func (e *Engine) HybridSearch(ctx context.Context, query string) ([]types.FusedChunk, error) {
	if cached, ok := e.cache.Get(query); ok {
		e.logger.Debug("retrieval cache hit", zap.String("query", truncate(query, 80)))
		return cached, nil
	}

	var semantic, keyword []types.ScoredChunk

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		semantic, err = e.backend.NearestNeighbors(gctx, query, e.cfg.TopKSemantic)
		if err != nil {
			return fmt.Errorf("semantic search: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		hits, err := e.backend.KeywordFilter(gctx, query, e.cfg.TopKKeyword)
		if err != nil {
			// Keyword search is best-effort. Log and continue semantic-only.
			e.logger.Warn("keyword search failed, degrading to semantic-only", zap.Error(err))
			return nil
		}
		keyword = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := e.fuse(semantic, keyword)
	if len(fused) > e.cfg.TopKFinal {
		fused = fused[:e.cfg.TopKFinal]
	}
	fused = reorderForLongContext(fused)

	e.cache.Set(query, fused)
	e.logger.Debug("hybrid search complete",
		zap.Int("semantic", len(semantic)),
		zap.Int("keyword", len(keyword)),
		zap.Int("fused", len(fused)))
	return fused, nil
}

// fuse merges the two rankings with reciprocal rank fusion. Each appearance
// of a chunk contributes 1/(k + rank + 1) with zero-based ranks, so a chunk
// found by both branches outscores one found by a single branch at the same
// position.
func (e *Engine) fuse(semantic, keyword []types.ScoredChunk) []types.FusedChunk {
	byID := make(map[string]*types.FusedChunk)

	accumulate := func(ranked []types.ScoredChunk, isSemantic bool) {
		for rank, sc := range ranked {
			contribution := 1.0 / float64(e.cfg.RRFConstant+rank+1)
			entry, ok := byID[sc.Chunk.ChunkID]
			if !ok {
				entry = &types.FusedChunk{Chunk: sc.Chunk}
				byID[sc.Chunk.ChunkID] = entry
			}
			entry.FusedScore += contribution
			if isSemantic {
				entry.SemanticScore = sc.Score
			}
		}
	}
	accumulate(semantic, true)
	accumulate(keyword, false)

	fused := make([]types.FusedChunk, 0, len(byID))
	for _, entry := range byID {
		fused = append(fused, *entry)
	}
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		return fused[i].Chunk.ChunkID < fused[j].Chunk.ChunkID
	})
	return fused
}

// reorderForLongContext counters the lost-in-the-middle effect: the most
// relevant chunks are moved to the ends of the list and the least relevant
// sink to the middle. Lists of two or fewer are returned unchanged.
func reorderForLongContext(ranked []types.FusedChunk) []types.FusedChunk {
	if len(ranked) <= 2 {
		return ranked
	}
	reordered := make([]types.FusedChunk, 0, len(ranked))
	for i, ch := range ranked {
		if i%2 == 1 {
			reordered = append([]types.FusedChunk{ch}, reordered...)
		} else {
			reordered = append(reordered, ch)
		}
	}
	return reordered
}

// =============================================================================
// CONTEXT FORMATTING
// =============================================================================

// FormatContext renders fused chunks as a numbered evidence block. Source
// numbers are one-based and line up with the bracket citations agents emit.
func FormatContext(chunks []types.FusedChunk) string {
	if len(chunks) == 0 {
		return "No evidence retrieved."
	}
	var b strings.Builder
	for i, ch := range chunks {
		fmt.Fprintf(&b, "[Source %d: %s | ID: %s]\n%s\n\n", i+1, ch.Chunk.SourceDocument, ch.Chunk.ChunkID, ch.Chunk.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
