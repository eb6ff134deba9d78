// Package citation extracts bracketed source markers from synthesized
// narratives, links claims to evidence chunks, and audits finished reports
// for structural citation defects.
package citation

import (
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// MARKER PARSING
// =============================================================================

var markerPattern = regexp.MustCompile(`\[Source\s+(\d+)\]`)

// Marker is one bracketed source reference found in narrative text.
type Marker struct {
	SourceNumber int // 1-based as written
	Offset       int // byte offset of '[' in the scanned text
}

// ParseMarkers returns every "[Source N]" reference in text, in document
// order. Malformed brackets are ignored.
func ParseMarkers(text string) []Marker {
	matches := markerPattern.FindAllStringSubmatchIndex(text, -1)
	markers := make([]Marker, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		markers = append(markers, Marker{SourceNumber: n, Offset: m[0]})
	}
	return markers
}

// =============================================================================
// SENTENCE SEGMENTATION
// =============================================================================

// Sentence is a segment of narrative text with its position.
type Sentence struct {
	Text  string
	Start int // byte offset of first rune, inclusive
	End   int // byte offset past the terminator, exclusive
}

// SplitSentences segments text on '.', '!' and '?' boundaries. The
// terminator stays attached to its sentence. Trailing text without a
// terminator forms a final sentence.
func SplitSentences(text string) []Sentence {
	var sentences []Sentence
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			seg := text[start : i+1]
			if strings.TrimSpace(seg) != "" {
				sentences = append(sentences, Sentence{Text: seg, Start: start, End: i + 1})
			}
			start = i + 1
		}
	}
	if start < len(text) && strings.TrimSpace(text[start:]) != "" {
		sentences = append(sentences, Sentence{Text: text[start:], Start: start, End: len(text)})
	}
	return sentences
}

// enclosingSentence returns the trimmed sentence containing the byte offset,
// or the empty string when the offset falls outside every sentence.
func enclosingSentence(sentences []Sentence, offset int) string {
	for _, s := range sentences {
		if offset >= s.Start && offset < s.End {
			return strings.TrimSpace(s.Text)
		}
	}
	return ""
}

// =============================================================================
// FACTUAL-CLAIM HEURISTIC
// =============================================================================

var (
	percentPattern = regexp.MustCompile(`\d+(?:\.\d+)?\s*%`)
	dollarPattern  = regexp.MustCompile(`\$\s*\d`)
	yearPattern    = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

var factualPhrases = []string{
	"according to",
	"reported that",
	"found that",
	"shows that",
	"indicates",
}

// looksFactual reports whether a sentence makes a checkable factual claim:
// it carries a percentage, a dollar amount, a four-digit year, or an
// attribution phrase.
func looksFactual(sentence string) bool {
	if percentPattern.MatchString(sentence) ||
		dollarPattern.MatchString(sentence) ||
		yearPattern.MatchString(sentence) {
		return true
	}
	lower := strings.ToLower(sentence)
	for _, phrase := range factualPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
