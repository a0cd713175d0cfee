package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// text with no separators at all, distinct characters so overlap can
// be checked by content.
func flatText(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return string(b)
}

func TestSplitEmpty(t *testing.T) {
	if got := Default().Split(""); got != nil {
		t.Errorf("expected no windows for empty input, got %d", len(got))
	}
	if got := Default().Split("   \n\t"); got != nil {
		t.Errorf("expected no windows for whitespace input, got %d", len(got))
	}
}

func TestSplitSingleWindow(t *testing.T) {
	text := flatText(1000)
	windows := Default().Split(text)
	if len(windows) != 1 {
		t.Fatalf("expected 1 window for 1000 chars, got %d", len(windows))
	}
	if windows[0] != text {
		t.Errorf("window does not match input")
	}
}

func TestSplitWindowCount(t *testing.T) {
	// With no separators the splitter hard-cuts, advancing 800 per
	// window: ceil((L-200)/800) windows.
	cases := []struct {
		length int
		want   int
	}{
		{1001, 2},
		{1800, 2},
		{2500, 3},
		{5000, 6},
	}
	for _, tc := range cases {
		windows := Default().Split(flatText(tc.length))
		if len(windows) != tc.want {
			t.Errorf("length %d: expected %d windows, got %d", tc.length, tc.want, len(windows))
		}
	}
}

func TestSplitOverlap(t *testing.T) {
	text := flatText(2500)
	windows := Default().Split(text)
	if len(windows) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(windows))
	}
	// consecutive windows share the 200-char overlap region
	tail := windows[0][len(windows[0])-200:]
	head := windows[1][:200]
	if tail != head {
		t.Errorf("overlap mismatch between consecutive windows")
	}
}

func TestSplitPrefersParagraphBreak(t *testing.T) {
	text := strings.Repeat("A", 900) + "\n\n" + strings.Repeat("B", 900)
	windows := Default().Split(text)
	if len(windows) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(windows))
	}
	if windows[0] != strings.Repeat("A", 900) {
		t.Errorf("first window should end at the paragraph break, got %d chars ending %q",
			len(windows[0]), windows[0][len(windows[0])-1:])
	}
}

func TestSplitWindowSizeBound(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 1200))
	for i, w := range Default().Split(text) {
		if len(w) > 1000 {
			t.Errorf("window %d exceeds target size: %d chars", i, len(w))
		}
	}
}

func TestSplitMultibyteRuneBoundaries(t *testing.T) {
	// three-byte runes with no separators force hard cuts at byte
	// offsets that do not divide the rune width
	text := strings.Repeat("世", 1200)
	windows := Default().Split(text)
	if len(windows) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(windows))
	}
	for i, w := range windows {
		if !utf8.ValidString(w) {
			t.Errorf("window %d is not valid UTF-8", i)
		}
	}
}

func TestSplitNoProgressStall(t *testing.T) {
	// overlap >= size is clamped so the loop always advances
	s := New(10, 50)
	windows := s.Split(flatText(100))
	if len(windows) == 0 {
		t.Fatal("expected windows")
	}
	for _, w := range windows {
		if len(w) > 10 {
			t.Errorf("window exceeds size: %q", w)
		}
	}
}
