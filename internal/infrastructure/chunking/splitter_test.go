package chunking

import (
	"strings"
	"testing"
)

func TestNewSplitterDefaults(t *testing.T) {
	s := NewSplitter(0, -1)
	if s.ChunkSize != 900 || s.Overlap != 0 {
		t.Fatalf("unexpected defaults %+v", s)
	}
	s = NewSplitter(100, 200)
	if s.Overlap != 25 {
		t.Fatalf("expected overlap clamped to 25, got %d", s.Overlap)
	}
}

func TestSplitEmpty(t *testing.T) {
	if got := NewSplitter(10, 2).Split(""); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	got := NewSplitter(100, 10).Split("  Closing Disclosure  ")
	if len(got) != 1 || got[0] != "Closing Disclosure" {
		t.Fatalf("unexpected chunks %q", got)
	}
}

func TestSplitPrefersParagraphBreak(t *testing.T) {
	text := strings.Repeat("a", 15) + "\n\n" + strings.Repeat("b", 15)
	got := NewSplitter(20, 0).Split(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %q", got)
	}
	if got[0] != strings.Repeat("a", 15) || got[1] != strings.Repeat("b", 15) {
		t.Fatalf("expected paragraph split, got %q", got)
	}
}

func TestSplitOverlapCoversWholeText(t *testing.T) {
	text := strings.Repeat("x", 50)
	got := NewSplitter(20, 5).Split(text)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(got), got)
	}
	total := 0
	for _, c := range got {
		total += len(c)
	}
	if total != 50+2*5 {
		t.Fatalf("expected overlapping coverage of 60 runes, got %d", total)
	}
}
