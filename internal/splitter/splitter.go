package splitter

import (
	"strings"
	"unicode/utf8"
)

const (
	defaultWindowSize = 1000 // characters
	defaultOverlap    = 200  // characters
)

// separators in preference order: paragraph break, line break, space.
// A window that still exceeds the target after all three is hard-cut.
var separators = []string{"\n\n", "\n", " "}

// Splitter produces overlapping fixed-size windows from a text body,
// preferring natural break points near the window edge.
type Splitter struct {
	size    int
	overlap int
}

func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = defaultWindowSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Splitter{size: size, overlap: overlap}
}

// Default returns a splitter with the standard 1000/200 window.
func Default() *Splitter {
	return New(defaultWindowSize, defaultOverlap)
}

// Split windows the text. Empty input yields no windows; input shorter
// than the window size yields exactly one.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.size {
		return []string{text}
	}

	var windows []string
	start := 0
	for start < len(text) {
		end := start + s.size
		if end >= len(text) {
			end = len(text)
		} else {
			end = s.breakPoint(text, start, end)
		}

		if w := strings.TrimSpace(text[start:end]); w != "" {
			windows = append(windows, w)
		}

		if end >= len(text) {
			break
		}
		next := end - s.overlap
		for next > start && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			// always make progress, landing on a rune start
			next = start + 1
			for next < len(text) && !utf8.RuneStart(text[next]) {
				next++
			}
		}
		start = next
	}
	return windows
}

// breakPoint looks backwards from end for the most natural separator
// within the overlap region, falling back to a hard cut at end.
func (s *Splitter) breakPoint(text string, start, end int) int {
	lookback := s.overlap
	if lookback > end-start {
		lookback = end - start
	}
	region := text[end-lookback : end]
	for _, sep := range separators {
		if idx := strings.LastIndex(region, sep); idx >= 0 {
			return end - lookback + idx + len(sep)
		}
	}
	// hard cut must not land inside a multibyte rune
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	return end
}
