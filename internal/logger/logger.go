package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FieldRoomID      = "room_id"
	FieldCandidateID = "candidate_id"
	FieldReportID    = "report_id"
	FieldModel       = "ai_model"
)

// New builds the process logger. json switches to machine-readable output,
// debug lowers the level so prompt/response previews are emitted.
func New(json bool, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encoding := "console"
	if json {
		encoding = "json"
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:   "msg",
			LevelKey:     "level",
			EncodeLevel:  zapcore.LowercaseLevelEncoder,
			TimeKey:      "time",
			EncodeTime:   zapcore.RFC3339TimeEncoder,
			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}

	return cfg.Build()
}

// OrNop never returns nil so components can log unconditionally.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// PipelineFields identifies one evaluation run. Blank ids are skipped.
func PipelineFields(roomID, candidateID string) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if v := strings.TrimSpace(roomID); v != "" {
		fields = append(fields, zap.String(FieldRoomID, v))
	}
	if v := strings.TrimSpace(candidateID); v != "" {
		fields = append(fields, zap.String(FieldCandidateID, v))
	}
	return fields
}

// ForPipeline returns a child logger carrying the run identifiers.
func ForPipeline(l *zap.Logger, roomID, candidateID string) *zap.Logger {
	l = OrNop(l)
	fields := PipelineFields(roomID, candidateID)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// Truncate shortens s to limit runes, appending an ellipsis when cut.
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
