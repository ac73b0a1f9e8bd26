package splitters

import (
	"fmt"
	"strings"
)

// defaultSeparators are the boundary tiers tried in order: paragraph,
// line, sentence, word, and finally a hard character cut.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveSplitter splits text into overlapping bounded-length chunks,
// preferring natural boundaries over hard character cuts. Splitting is
// deterministic: identical input and parameters always produce identical
// chunks.
type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	separators   []string
}

// NewRecursiveSplitter creates a RecursiveSplitter. ChunkOverlap must be
// smaller than ChunkSize or consecutive chunks could never advance.
func NewRecursiveSplitter(chunkSize, chunkOverlap int) (*RecursiveSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", chunkOverlap)
	}
	return &RecursiveSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}, nil
}

// SplitText splits text into chunks of at most ChunkSize characters where
// consecutive chunks share up to ChunkOverlap characters, snapped to the
// nearest boundary. Empty input yields no chunks.
func (s *RecursiveSplitter) SplitText(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.ChunkSize {
		return []string{text}
	}
	pieces := s.splitRecursive(text, s.separators)
	return s.merge(pieces)
}

// splitRecursive breaks text into pieces no longer than ChunkSize. It uses
// the first separator tier present in the text and recurses with the finer
// tiers on any piece that is still too long. Separators stay attached to
// the piece that precedes them so that concatenating all pieces recovers
// the original text.
func (s *RecursiveSplitter) splitRecursive(text string, separators []string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.ChunkSize {
		return []string{text}
	}

	separator := ""
	remaining := []string{}
	for i, sep := range separators {
		if sep == "" {
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	if separator == "" {
		// No natural boundary left: hard cut into ChunkSize windows.
		var pieces []string
		for start := 0; start < len(text); start += s.ChunkSize {
			end := start + s.ChunkSize
			if end > len(text) {
				end = len(text)
			}
			pieces = append(pieces, text[start:end])
		}
		return pieces
	}

	var pieces []string
	for _, part := range splitAfter(text, separator) {
		if part == "" {
			continue
		}
		if len(part) <= s.ChunkSize {
			pieces = append(pieces, part)
		} else {
			pieces = append(pieces, s.splitRecursive(part, remaining)...)
		}
	}
	return pieces
}

// merge greedily packs pieces into chunks of at most ChunkSize characters.
// When a chunk is emitted, the next chunk is seeded with the trailing pieces
// of the previous one up to ChunkOverlap characters, which is what makes
// consecutive chunks overlap.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, ""))

		// Seed the next chunk with the overlap tail of this one.
		var tail []string
		tailLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			if tailLen+len(current[i]) > s.ChunkOverlap {
				break
			}
			tail = append([]string{current[i]}, tail...)
			tailLen += len(current[i])
		}
		current = tail
		currentLen = tailLen
	}

	for _, piece := range pieces {
		if currentLen > 0 && currentLen+len(piece) > s.ChunkSize {
			flush()
			// The overlap tail plus the new piece may still exceed the
			// budget; drop the tail rather than emit an oversized chunk.
			if currentLen+len(piece) > s.ChunkSize {
				current = nil
				currentLen = 0
			}
		}
		current = append(current, piece)
		currentLen += len(piece)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, ""))
	}
	return chunks
}

// splitAfter splits text on sep, keeping sep attached to the preceding part.
func splitAfter(text, sep string) []string {
	return strings.SplitAfter(text, sep)
}
