// Package chunker is the default character-window chunk strategy.
//
// Text is cut on whitespace only, so words are never split. Each chunk
// ends at the strongest boundary inside its window: a markdown heading,
// then a paragraph break, then a line or sentence end, then any space.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Config controls chunking behavior. Lengths are counted in characters
// (runes).
type Config struct {
	MaxCharacters     int
	OverlapCharacters int

	// Markdown makes headings the preferred place to cut.
	Markdown bool
}

type boundary int

const (
	wordBoundary boundary = iota + 1
	lineBoundary
	paragraphBoundary
	headingBoundary
)

type word struct {
	start, end         int // byte offsets
	runeStart, runeEnd int
	before             boundary // strength of the gap before this word
}

// Split breaks text into ordered chunks. Every chunk is a substring of
// text. Consecutive chunks share a word-aligned overlap of at most
// OverlapCharacters. A chunk longer than MaxCharacters only occurs when a
// single word is longer than that.
func Split(text string, cfg Config) []string {
	spans := splitSpans(text, cfg)
	chunks := make([]string, 0, len(spans))
	for _, sp := range spans {
		chunks = append(chunks, text[sp.start:sp.end])
	}
	return chunks
}

// span is a chunk as byte offsets into the source text.
type span struct {
	start, end int
}

func splitSpans(text string, cfg Config) []span {
	if cfg.MaxCharacters <= 0 {
		return nil
	}
	if cfg.OverlapCharacters < 0 {
		cfg.OverlapCharacters = 0
	}
	words := scanWords(text, cfg.Markdown)
	if len(words) == 0 {
		return nil
	}

	width := func(from, to int) int {
		return words[to-1].runeEnd - words[from].runeStart
	}

	var spans []span
	start, prevEnd := 0, 0
	for {
		end := start + 1
		for end < len(words) && width(start, end+1) <= cfg.MaxCharacters {
			end++
		}
		if end < len(words) {
			end = backOff(words, start, prevEnd+1, end, width, cfg.MaxCharacters)
		}

		spans = append(spans, span{start: words[start].start, end: words[end-1].end})
		if end == len(words) {
			return spans
		}

		prevEnd = end
		start = overlapStart(start, end, width, cfg)
	}
}

// backOff moves the cut from end toward start to the strongest boundary
// that keeps the chunk at least half full. Cuts never land at or before
// minEnd-1, which keeps overlapping chunks moving forward.
func backOff(words []word, start, minEnd, end int, width func(int, int) int, limit int) int {
	best := end
	level := words[end].before
	for k := end - 1; k >= minEnd && k > start; k-- {
		if width(start, k)*2 < limit {
			break
		}
		if words[k].before > level {
			best, level = k, words[k].before
		}
	}
	return best
}

// overlapStart finds where the next chunk begins: the earliest word whose
// suffix up to end fits in the overlap, provided the word at end still fits
// alongside it. Without such a word the next chunk starts at end.
func overlapStart(start, end int, width func(int, int) int, cfg Config) int {
	if cfg.OverlapCharacters == 0 {
		return end
	}
	for j := start + 1; j < end; j++ {
		if width(j, end) <= cfg.OverlapCharacters && width(j, end+1) <= cfg.MaxCharacters {
			return j
		}
	}
	return end
}

func scanWords(text string, markdown bool) []word {
	var words []word
	runeIdx := 0
	inWord := false
	var cur word
	gapStart := 0

	for i, r := range text {
		space := unicode.IsSpace(r)
		switch {
		case !space && !inWord:
			cur = word{start: i, runeStart: runeIdx}
			if len(words) > 0 {
				cur.before = classify(text[gapStart:i], text[words[len(words)-1].start:words[len(words)-1].end], text[i:], markdown)
			}
			inWord = true
		case space && inWord:
			cur.end, cur.runeEnd = i, runeIdx
			words = append(words, cur)
			gapStart = i
			inWord = false
		}
		runeIdx++
	}
	if inWord {
		cur.end, cur.runeEnd = len(text), runeIdx
		words = append(words, cur)
	}
	return words
}

func classify(gap, prev, rest string, markdown bool) boundary {
	newlines := strings.Count(gap, "\n")
	switch {
	case markdown && newlines > 0 && strings.HasPrefix(rest, "#"):
		return headingBoundary
	case newlines > 1:
		return paragraphBoundary
	case newlines == 1:
		return lineBoundary
	}
	if last, _ := utf8.DecodeLastRuneInString(prev); last == '.' || last == '!' || last == '?' {
		return lineBoundary
	}
	return wordBoundary
}
