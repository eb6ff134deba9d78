// Package store persists the document corpus in SQLite (pure-Go driver) and
// serves the two retrieval primitives the fusion engine needs:
// NearestNeighbors (embedding cosine ranking) and KeywordFilter (crude
// best-effort token match). Chunk IDs are content-addressed so every citation
// in a report traces back to a row here.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"inquest/internal/embedding"
	"inquest/internal/types"
)

// ChunkRecord is one stored corpus chunk.
type ChunkRecord struct {
	ChunkID string
	Source  string
	Index   int
	Content string
}

// CorpusStore owns the SQLite corpus database.
type CorpusStore struct {
	db     *sql.DB
	engine embedding.Engine
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_id  TEXT PRIMARY KEY,
	source    TEXT NOT NULL,
	position  INTEGER NOT NULL,
	content   TEXT NOT NULL,
	embedding BLOB,
	metadata  TEXT
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
`

// Open opens (creating if necessary) the corpus database at path.
func Open(path string, engine embedding.Engine, logger *zap.Logger) (*CorpusStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &CorpusStore{db: db, engine: engine, logger: logger}, nil
}

// Close releases the database handle.
func (s *CorpusStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// INGESTION
// =============================================================================

// supported document extensions; anything else in the directory is skipped.
var loadableExts = map[string]bool{".txt": true, ".md": true}

// IngestDir loads all supported documents under dir, splits them into
// overlapping chunks, embeds them, and upserts into the corpus. Returns the
// number of chunks stored. A document that fails to load is logged and
// skipped, not fatal.
func (s *CorpusStore) IngestDir(ctx context.Context, dir string, cfg ChunkerConfig) (int, error) {
	var total int
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !loadableExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			s.logger.Warn("skipping unreadable document", zap.String("path", path), zap.Error(readErr))
			return nil
		}
		n, ingestErr := s.IngestDocument(ctx, filepath.Base(path), string(data), cfg)
		if ingestErr != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, ingestErr)
		}
		total += n
		return nil
	})
	if err != nil {
		return total, err
	}
	s.logger.Info("corpus ingestion complete", zap.String("dir", dir), zap.Int("chunks", total))
	return total, nil
}

// IngestDocument splits and stores a single document.
func (s *CorpusStore) IngestDocument(ctx context.Context, source, content string, cfg ChunkerConfig) (int, error) {
	records := SplitDocument(source, content, cfg)
	if len(records) == 0 {
		return 0, nil
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Content
	}

	var vectors [][]float32
	if s.engine != nil {
		var err error
		vectors, err = s.engine.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed %s: %w", source, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, r := range records {
		var blob []byte
		if vectors != nil {
			blob = encodeFloat32SliceToBlob(vectors[i])
		}
		meta, _ := json.Marshal(map[string]string{"source": r.Source})
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO chunks (chunk_id, source, position, content, embedding, metadata)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.ChunkID, r.Source, r.Index, r.Content, blob, string(meta)); err != nil {
			return 0, fmt.Errorf("failed to store chunk %s: %w", r.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit ingestion: %w", err)
	}
	return len(records), nil
}

// Count returns the number of stored chunks.
func (s *CorpusStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// =============================================================================
// RETRIEVAL PRIMITIVES
// =============================================================================

// NearestNeighbors embeds the query and ranks stored chunks by cosine
// similarity, returning the top k.
func (s *CorpusStore) NearestNeighbors(ctx context.Context, query string, k int) ([]types.ScoredChunk, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("no embedding engine configured")
	}
	if k <= 0 {
		k = 8
	}

	queryVec, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, source, content, embedding FROM chunks WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan corpus: %w", err)
	}
	defer rows.Close()

	var results []types.ScoredChunk
	for rows.Next() {
		var id, source, content string
		var blob []byte
		if err := rows.Scan(&id, &source, &content, &blob); err != nil {
			return nil, err
		}
		vec := decodeFloat32SliceFromBlob(blob)
		if vec == nil {
			s.logger.Warn("skipping chunk with corrupt embedding", zap.String("chunk_id", id))
			continue
		}
		sim, err := embedding.CosineSimilarity(queryVec, vec)
		if err != nil {
			continue // dimension mismatch after a model change
		}
		results = append(results, types.ScoredChunk{
			Chunk: types.Chunk{
				ChunkID:        id,
				SourceDocument: source,
				Content:        content,
				RelevanceScore: sim,
			},
			Score: sim,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ChunkID < results[j].Chunk.ChunkID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// KeywordFilter returns up to k chunks containing the first token of the
// query. This is a deliberately crude best-effort filter, not an inverted
// index; its precision is bounded by the single-token heuristic.
func (s *CorpusStore) KeywordFilter(ctx context.Context, query string, k int) ([]types.ScoredChunk, error) {
	if k <= 0 {
		k = 5
	}
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return nil, nil
	}
	token := fields[0]

	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, source, content FROM chunks
		 WHERE content LIKE '%' || ? || '%' COLLATE NOCASE
		 ORDER BY chunk_id LIMIT ?`, token, k)
	if err != nil {
		return nil, fmt.Errorf("keyword filter failed: %w", err)
	}
	defer rows.Close()

	var results []types.ScoredChunk
	for rows.Next() {
		var id, source, content string
		if err := rows.Scan(&id, &source, &content); err != nil {
			return nil, err
		}
		// Neutral score: the keyword branch carries rank information only.
		results = append(results, types.ScoredChunk{
			Chunk: types.Chunk{
				ChunkID:        id,
				SourceDocument: source,
				Content:        content,
				RelevanceScore: 0.5,
			},
			Score: 0.5,
		})
	}
	return results, rows.Err()
}

// =============================================================================
// VECTOR ENCODING
// =============================================================================

// encodeFloat32SliceToBlob encodes a float32 slice as a little-endian blob.
func encodeFloat32SliceToBlob(vec []float32) []byte {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		// Should never happen with bytes.Buffer
		return nil
	}
	return buf.Bytes()
}

// decodeFloat32SliceFromBlob decodes a binary blob back to a float32 slice.
func decodeFloat32SliceFromBlob(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}

	vec := make([]float32, len(blob)/4)
	reader := bytes.NewReader(blob)
	if err := binary.Read(reader, binary.LittleEndian, &vec); err != nil {
		return nil
	}
	return vec
}
