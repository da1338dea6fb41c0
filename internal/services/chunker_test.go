package services

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkTextKeepsShortTextWhole(t *testing.T) {
	chunks := NewTextChunker().ChunkText("First paragraph.\n\nSecond paragraph.", 200, 20)
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "First paragraph.\n\nSecond paragraph." {
		t.Fatalf("unexpected chunk %q", chunks[0])
	}
}

func TestChunkTextRespectsMaxSize(t *testing.T) {
	text := strings.Repeat("The candidate explained goroutines clearly. ", 40) +
		"\n\n" + strings.Repeat("x", 250) +
		"\n\nShort closing note."

	const max = 120
	chunks := NewTextChunker().ChunkText(text, max, 15)
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > max {
			t.Fatalf("chunk %d has %d runes, over %d", i, n, max)
		}
		if strings.TrimSpace(c) == "" {
			t.Fatalf("chunk %d is blank", i)
		}
	}
	if !strings.HasSuffix(chunks[len(chunks)-1], "Short closing note.") {
		t.Fatalf("last chunk lost the tail: %q", chunks[len(chunks)-1])
	}
}

func TestChunkTextOverlap(t *testing.T) {
	text := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60)
	chunks := NewTextChunker().ChunkText(text, 80, 10)
	if len(chunks) != 2 {
		t.Fatalf("expected two chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[1], strings.Repeat("a", 10)+" ") {
		t.Fatalf("expected overlap from previous chunk, got %q", chunks[1])
	}
}

func TestChunkTextEmpty(t *testing.T) {
	if chunks := NewTextChunker().ChunkText(" \n\n ", 100, 10); len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %q", chunks)
	}
}
