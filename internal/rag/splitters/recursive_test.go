package splitters

import (
	"strings"
	"testing"
)

func TestNewRecursiveSplitterValidation(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 500, 100, false},
		{"zero overlap", 500, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 500, -1, true},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRecursiveSplitter(tc.size, tc.overlap)
			if (err != nil) != tc.wantErr {
				t.Fatalf("NewRecursiveSplitter(%d, %d) error = %v, wantErr %v", tc.size, tc.overlap, err, tc.wantErr)
			}
		})
	}
}

func TestSplitTextEmpty(t *testing.T) {
	s, _ := NewRecursiveSplitter(100, 20)
	if got := s.SplitText(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestSplitTextShortInputIsSingleChunk(t *testing.T) {
	s, _ := NewRecursiveSplitter(100, 20)
	text := "a short review"
	got := s.SplitText(text)
	if len(got) != 1 || got[0] != text {
		t.Fatalf("expected [%q], got %v", text, got)
	}
}

func TestSplitTextChunkSizeRespected(t *testing.T) {
	s, _ := NewRecursiveSplitter(50, 10)
	text := strings.Repeat("The app crashes on startup. ", 20)
	for i, chunk := range s.SplitText(text) {
		if len(chunk) > 50 {
			t.Errorf("chunk %d has length %d, exceeds 50: %q", i, len(chunk), chunk)
		}
	}
}

func TestSplitTextCoversAllContent(t *testing.T) {
	s, _ := NewRecursiveSplitter(60, 15)
	text := "First paragraph about battery life.\n\nSecond paragraph about the login screen.\n\nThird paragraph, quite a bit longer, complaining about ads interrupting playback constantly."

	chunks := s.SplitText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Every sentence word must survive in some chunk.
	joined := strings.Join(chunks, " ")
	for _, word := range []string{"battery", "login", "ads", "playback"} {
		if !strings.Contains(joined, word) {
			t.Errorf("word %q lost during splitting", word)
		}
	}
}

func TestSplitTextOverlap(t *testing.T) {
	s, _ := NewRecursiveSplitter(40, 15)
	text := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen"

	chunks := s.SplitText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d: %v", len(chunks), chunks)
	}
	// Each chunk must begin with a non-empty suffix of its predecessor.
	for i := 1; i < len(chunks); i++ {
		overlap := 0
		for k := 1; k <= len(chunks[i]) && k <= len(chunks[i-1]); k++ {
			if strings.HasSuffix(chunks[i-1], chunks[i][:k]) {
				overlap = k
			}
		}
		if overlap == 0 {
			t.Errorf("chunks %d and %d share no overlap:\nprev: %q\nnext: %q", i-1, i, chunks[i-1], chunks[i])
		}
	}
}

func TestSplitTextHardCutWithoutSeparators(t *testing.T) {
	s, _ := NewRecursiveSplitter(10, 0)
	text := strings.Repeat("x", 35)
	chunks := s.SplitText(text)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d: %v", len(chunks), chunks)
	}
	if got := strings.Join(chunks, ""); got != text {
		t.Fatalf("hard cut lost content: %q", got)
	}
}

func TestSplitTextDeterministic(t *testing.T) {
	s, _ := NewRecursiveSplitter(80, 20)
	text := strings.Repeat("Great app but it drains battery. ", 15)
	first := s.SplitText(text)
	for i := 0; i < 5; i++ {
		again := s.SplitText(text)
		if len(again) != len(first) {
			t.Fatalf("run %d produced %d chunks, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d chunk %d = %q, want %q", i, j, again[j], first[j])
			}
		}
	}
}

func TestSplitTextPrefersParagraphBoundaries(t *testing.T) {
	s, _ := NewRecursiveSplitter(50, 0)
	text := "A first paragraph about the onboarding flow.\n\nA second paragraph about crash reports."
	chunks := s.SplitText(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	for _, c := range chunks {
		if strings.Contains(c, "first") && strings.Contains(c, "second") {
			t.Fatalf("paragraphs merged across boundary: %q", c)
		}
	}
}
