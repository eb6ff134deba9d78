package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inquest/internal/types"
)

type fakeBackend struct {
	semantic    []types.ScoredChunk
	keyword     []types.ScoredChunk
	semanticErr error
	keywordErr  error
	calls       int
}

func (b *fakeBackend) NearestNeighbors(_ context.Context, _ string, _ int) ([]types.ScoredChunk, error) {
	b.calls++
	return b.semantic, b.semanticErr
}

func (b *fakeBackend) KeywordFilter(_ context.Context, _ string, _ int) ([]types.ScoredChunk, error) {
	return b.keyword, b.keywordErr
}

func scored(id string, score float64) types.ScoredChunk {
	return types.ScoredChunk{
		Chunk: types.Chunk{ChunkID: id, SourceDocument: id + ".txt", Content: "content of " + id},
		Score: score,
	}
}

func newTestEngine(b Backend) *Engine {
	cfg := DefaultConfig()
	cfg.TopKFinal = 10
	return NewEngine(b, cfg, nil)
}

func TestHybridSearch_DualAppearanceOutranksSingle(t *testing.T) {
	// A sits below B semantically but also appears in the keyword branch.
	// Two contributions beat one.
	backend := &fakeBackend{
		semantic: []types.ScoredChunk{scored("chunk-b", 0.9), scored("chunk-a", 0.8)},
		keyword:  []types.ScoredChunk{scored("chunk-a", 0.5)},
	}
	eng := newTestEngine(backend)

	fused := eng.fuse(backend.semantic, backend.keyword)
	require.Len(t, fused, 2)
	assert.Equal(t, "chunk-a", fused[0].Chunk.ChunkID)
	assert.InDelta(t, 1.0/62+1.0/61, fused[0].FusedScore, 1e-12)
	assert.InDelta(t, 1.0/61, fused[1].FusedScore, 1e-12)
	assert.Equal(t, 0.8, fused[0].SemanticScore)
}

func TestHybridSearch_EqualRankTieBrokenByChunkID(t *testing.T) {
	backend := &fakeBackend{
		semantic: []types.ScoredChunk{scored("zeta", 0.9)},
		keyword:  []types.ScoredChunk{scored("alpha", 0.5)},
	}
	eng := newTestEngine(backend)

	fused := eng.fuse(backend.semantic, backend.keyword)
	require.Len(t, fused, 2)
	assert.Equal(t, "alpha", fused[0].Chunk.ChunkID)
	assert.Equal(t, "zeta", fused[1].Chunk.ChunkID)
}

func TestReorderForLongContext(t *testing.T) {
	ranked := make([]types.FusedChunk, 5)
	for i := range ranked {
		ranked[i] = types.FusedChunk{Chunk: types.Chunk{ChunkID: fmt.Sprintf("c%d", i+1)}}
	}

	reordered := reorderForLongContext(ranked)
	ids := make([]string, len(reordered))
	for i, ch := range reordered {
		ids[i] = ch.Chunk.ChunkID
	}
	assert.Equal(t, []string{"c4", "c2", "c1", "c3", "c5"}, ids)

	// Two or fewer: untouched.
	pair := ranked[:2]
	assert.Equal(t, pair, reorderForLongContext(pair))
}

func TestHybridSearch_KeywordFailureDegradesToSemanticOnly(t *testing.T) {
	backend := &fakeBackend{
		semantic:   []types.ScoredChunk{scored("only", 0.7)},
		keywordErr: errors.New("table locked"),
	}
	eng := newTestEngine(backend)

	fused, err := eng.HybridSearch(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, fused, 1)
	assert.Equal(t, "only", fused[0].Chunk.ChunkID)
}

func TestHybridSearch_SemanticFailureIsFatal(t *testing.T) {
	backend := &fakeBackend{semanticErr: errors.New("embedding backend down")}
	eng := newTestEngine(backend)

	_, err := eng.HybridSearch(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "semantic search")
}

func TestHybridSearch_CacheHitBypassesBackend(t *testing.T) {
	backend := &fakeBackend{semantic: []types.ScoredChunk{scored("cached", 0.6)}}
	eng := newTestEngine(backend)
	ctx := context.Background()

	first, err := eng.HybridSearch(ctx, "repeat me")
	require.NoError(t, err)
	second, err := eng.HybridSearch(ctx, "repeat me")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, backend.calls)
}

func TestHybridSearch_TopKFinalTruncation(t *testing.T) {
	var sem []types.ScoredChunk
	for i := 0; i < 9; i++ {
		sem = append(sem, scored(fmt.Sprintf("c%02d", i), 1.0-float64(i)*0.1))
	}
	backend := &fakeBackend{semantic: sem}
	cfg := DefaultConfig()
	cfg.TopKFinal = 4
	eng := NewEngine(backend, cfg, nil)

	fused, err := eng.HybridSearch(context.Background(), "big corpus")
	require.NoError(t, err)
	assert.Len(t, fused, 4)
}

func TestQueryResultCache_TTLAndEviction(t *testing.T) {
	t.Run("expired entries are misses", func(t *testing.T) {
		cache := NewQueryResultCache(10, -1*time.Second)
		cache.Set("q", []types.FusedChunk{{Chunk: types.Chunk{ChunkID: "x"}}})
		_, ok := cache.Get("q")
		assert.False(t, ok)
	})

	t.Run("capacity eviction drops oldest", func(t *testing.T) {
		cache := NewQueryResultCache(2, time.Hour)
		cache.Set("first", nil)
		cache.Set("second", nil)
		cache.Set("third", nil)

		_, ok := cache.Get("first")
		assert.False(t, ok)
		_, ok = cache.Get("third")
		assert.True(t, ok)
	})
}

func TestFormatContext(t *testing.T) {
	chunks := []types.FusedChunk{
		{Chunk: types.Chunk{ChunkID: "doc::0::abc", SourceDocument: "doc.txt", Content: "Alpha."}},
		{Chunk: types.Chunk{ChunkID: "doc::1::def", SourceDocument: "doc.txt", Content: "Beta."}},
	}
	out := FormatContext(chunks)
	assert.Contains(t, out, "[Source 1: doc.txt | ID: doc::0::abc]\nAlpha.")
	assert.Contains(t, out, "[Source 2: doc.txt | ID: doc::1::def]\nBeta.")

	assert.Equal(t, "No evidence retrieved.", FormatContext(nil))
}
