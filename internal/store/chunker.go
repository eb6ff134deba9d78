package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ChunkerConfig controls document splitting.
type ChunkerConfig struct {
	ChunkSize    int // target characters per chunk
	ChunkOverlap int // characters carried over between adjacent chunks
}

// splitSeparators are tried in order: paragraph, line, sentence, word.
var splitSeparators = []string{"\n\n", "\n", ". ", " "}

// SplitDocument splits a document into overlapping chunks and assigns each a
// deterministic content-addressed ID of the form source::index::hash. The
// same document always produces the same IDs, so citations stay valid across
// ingestion runs.
func SplitDocument(source, content string, cfg ChunkerConfig) []ChunkRecord {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 0
	}

	pieces := splitRecursive(content, cfg.ChunkSize, 0)
	merged := mergeWithOverlap(pieces, cfg)

	records := make([]ChunkRecord, 0, len(merged))
	for i, text := range merged {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		records = append(records, ChunkRecord{
			ChunkID: ChunkID(source, i, text),
			Source:  source,
			Index:   i,
			Content: text,
		})
	}
	return records
}

// ChunkID derives the stable identifier for a chunk from its source document,
// position, and content hash.
func ChunkID(source string, index int, content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s::%d::%s", source, index, hex.EncodeToString(sum[:])[:10])
}

// splitRecursive breaks text into pieces no larger than size, preferring the
// coarsest separator that works.
func splitRecursive(text string, size, sepIdx int) []string {
	if len(text) <= size {
		return []string{text}
	}
	if sepIdx >= len(splitSeparators) {
		// No separator left: hard split.
		var out []string
		for len(text) > size {
			out = append(out, text[:size])
			text = text[size:]
		}
		if text != "" {
			out = append(out, text)
		}
		return out
	}

	sep := splitSeparators[sepIdx]
	parts := strings.Split(text, sep)
	if len(parts) == 1 {
		return splitRecursive(text, size, sepIdx+1)
	}

	var out []string
	for i, part := range parts {
		if i < len(parts)-1 {
			part += sep
		}
		if len(part) > size {
			out = append(out, splitRecursive(part, size, sepIdx+1)...)
		} else {
			out = append(out, part)
		}
	}
	return out
}

// mergeWithOverlap greedily packs pieces into chunks near the target size,
// prepending the tail of the previous chunk so context carries across the
// boundary.
func mergeWithOverlap(pieces []string, cfg ChunkerConfig) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, current.String())
		current.Reset()
	}

	for _, piece := range pieces {
		if current.Len()+len(piece) > cfg.ChunkSize && current.Len() > 0 {
			prev := current.String()
			flush()
			if cfg.ChunkOverlap > 0 && len(prev) > cfg.ChunkOverlap {
				current.WriteString(prev[len(prev)-cfg.ChunkOverlap:])
			}
		}
		current.WriteString(piece)
	}
	flush()
	return chunks
}
