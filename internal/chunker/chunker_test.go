package chunker

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplit_ShortTextFitsOneChunk(t *testing.T) {
	chunks := Split("Hello world", Config{MaxCharacters: 100, OverlapCharacters: 10})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", chunks[0])
	}
}

func TestSplit_SixWords(t *testing.T) {
	text := "One two three four five six"
	chunks := Split(text, Config{MaxCharacters: 10})
	want := []string{"One two", "three four", "five six"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %q", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	for _, in := range []string{"", "   \n\t  "} {
		if chunks := Split(in, Config{MaxCharacters: 10}); len(chunks) != 0 {
			t.Errorf("expected no chunks for %q, got %q", in, chunks)
		}
	}
}

func TestSplit_ZeroMaxProducesNothing(t *testing.T) {
	if chunks := Split("some text", Config{}); chunks != nil {
		t.Errorf("expected nil for zero max, got %q", chunks)
	}
}

func TestSplit_OverlongWordKeptIntact(t *testing.T) {
	long := strings.Repeat("x", 25)
	chunks := Split("ab "+long+" cd", Config{MaxCharacters: 10, OverlapCharacters: 3})
	found := false
	for _, c := range chunks {
		if strings.Contains(c, "x") {
			if c != long {
				t.Errorf("expected overlong word alone in its chunk, got %q", c)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("overlong word missing from %q", chunks)
	}
}

func TestSplit_Overlap(t *testing.T) {
	chunks := Split("a b c d e f g h", Config{MaxCharacters: 5, OverlapCharacters: 2})
	want := []string{"a b c", "c d e", "e f g", "g h"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %q, got %q", want, chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	text := "alpha beta gamma.\n\ndelta epsilon zeta eta theta"
	chunks := Split(text, Config{MaxCharacters: 30})
	if chunks[0] != "alpha beta gamma." {
		t.Errorf("expected cut at paragraph break, got %q", chunks[0])
	}
}

func TestSplit_PrefersSentenceOverWord(t *testing.T) {
	text := "One two three. Four five six seven eight nine"
	chunks := Split(text, Config{MaxCharacters: 24})
	if chunks[0] != "One two three." {
		t.Errorf("expected cut after sentence, got %q", chunks[0])
	}
}

func TestSplit_IgnoresBoundaryThatLeavesChunkTooSmall(t *testing.T) {
	text := "Hi.\n\nthe quick brown fox jumps over"
	chunks := Split(text, Config{MaxCharacters: 20})
	if chunks[0] == "Hi." {
		t.Errorf("paragraph break under half the window should not win, got %q", chunks)
	}
}

func TestSplit_MarkdownHeadings(t *testing.T) {
	text := "aaaa bbbb cccc dddd eeee\n# Head\nffff\ngggg hhhh iiii"
	plain := Split(text, Config{MaxCharacters: 40})
	md := Split(text, Config{MaxCharacters: 40, Markdown: true})
	if plain[0] == md[0] {
		t.Fatalf("expected markdown mode to change the first cut, both %q", md[0])
	}
	if md[0] != "aaaa bbbb cccc dddd eeee" {
		t.Errorf("expected cut before heading, got %q", md[0])
	}
	if !strings.HasPrefix(md[1], "# Head") {
		t.Errorf("expected second chunk to open with heading, got %q", md[1])
	}
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	text := "héllo wörld ñandú"
	chunks := Split(text, Config{MaxCharacters: 11})
	if chunks[0] != "héllo wörld" {
		t.Errorf("expected rune-based width, got %q", chunks)
	}
}

func TestSplit_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vocab := []string{"a", "to", "the", "quick", "brown", "jumped.", "über", "lazy", "dog!", "\n", "\n\n"}

	for iter := 0; iter < 200; iter++ {
		var b strings.Builder
		n := rng.Intn(120)
		for i := 0; i < n; i++ {
			b.WriteString(vocab[rng.Intn(len(vocab))])
			b.WriteByte(' ')
		}
		text := b.String()
		maxChars := 5 + rng.Intn(60)
		overlap := rng.Intn(maxChars)
		cfg := Config{MaxCharacters: maxChars, OverlapCharacters: overlap, Markdown: iter%2 == 0}

		spans := splitSpans(text, cfg)
		words := strings.Fields(text)
		if len(words) == 0 {
			if len(spans) != 0 {
				t.Fatalf("expected no chunks for blank text")
			}
			continue
		}
		if spans[0].start != strings.Index(text, words[0]) {
			t.Fatalf("first chunk does not start at first word")
		}
		if spans[len(spans)-1].end != len(strings.TrimRightFunc(text, isSpace)) {
			t.Fatalf("last chunk does not reach the end of the text")
		}

		for i, sp := range spans {
			chunk := text[sp.start:sp.end]
			width := utf8.RuneCountInString(chunk)
			if width > maxChars && len(strings.Fields(chunk)) > 1 {
				t.Fatalf("chunk %d exceeds max %d: %q", i, maxChars, chunk)
			}
			if i == 0 {
				continue
			}
			prev := spans[i-1]
			if sp.start <= prev.start || sp.end <= prev.end {
				t.Fatalf("chunk %d does not advance", i)
			}
			if sp.start > prev.end {
				gap := text[prev.end:sp.start]
				if strings.TrimSpace(gap) != "" {
					t.Fatalf("text between chunks %d and %d was dropped: %q", i-1, i, gap)
				}
				continue
			}
			shared := utf8.RuneCountInString(text[sp.start:prev.end])
			if shared > overlap {
				t.Fatalf("overlap %d exceeds %d", shared, overlap)
			}
			if shared >= utf8.RuneCountInString(text[prev.start:prev.end]) {
				t.Fatalf("overlap covers the whole previous chunk")
			}
		}
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t'
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Error("expected 0 tokens for empty text")
	}
	if EstimateTokens("a") != 1 {
		t.Errorf("expected 1 token for a single character, got %d", EstimateTokens("a"))
	}
	if got := EstimateTokens(strings.Repeat("word ", 300)); got != 399 {
		t.Errorf("expected 399 tokens, got %d", got)
	}
}
