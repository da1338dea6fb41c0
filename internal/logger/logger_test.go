package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPipelineFields(t *testing.T) {
	fields := PipelineFields("  room-1  ", "   ")
	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Key != FieldRoomID || fields[0].String != "room-1" {
		t.Fatalf("unexpected field: %+v", fields[0])
	}

	if got := PipelineFields("", ""); len(got) != 0 {
		t.Fatalf("expected no fields, got %d", len(got))
	}
}

func TestForPipeline(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	ForPipeline(zap.New(core), "room-1", "cand-9").Info("finalize started")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx[FieldRoomID] != "room-1" || ctx[FieldCandidateID] != "cand-9" {
		t.Fatalf("unexpected context: %v", ctx)
	}

	// nil falls back to a no-op logger
	ForPipeline(nil, "room-1", "").Info("no panic")
}

func TestTruncate(t *testing.T) {
	if got := Truncate("  abcdef ", 3); got != "abc..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("unexpected value: %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
