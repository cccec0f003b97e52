package observability

import (
	"testing"

	"go.uber.org/zap"
)

func TestToZapFieldsPairsKeysAndValues(t *testing.T) {
	fields := toZapFields([]any{"repo", "git-iris", "attempt", 2})
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != "repo" || fields[1].Key != "attempt" {
		t.Fatalf("unexpected field keys: %+v", fields)
	}
}

func TestToZapFieldsSkipsNonStringKeys(t *testing.T) {
	fields := toZapFields([]any{42, "value", "ok", "yes"})
	if len(fields) != 1 || fields[0].Key != "ok" {
		t.Fatalf("expected only the valid pair to survive, got %+v", fields)
	}
}

func TestToZapFieldsIgnoresTrailingUnpairedKey(t *testing.T) {
	fields := toZapFields([]any{"dangling"})
	if len(fields) != 0 {
		t.Fatalf("expected no fields for an unpaired trailing key, got %+v", fields)
	}
}

func TestNewZapLoggerFallsBackToNopOnNilLogger(t *testing.T) {
	l := NewZapLogger(nil)
	if l.z == nil {
		t.Fatal("expected a non-nil zap logger fallback")
	}
}

func TestZapLoggerDoesNotPanicAcrossLevels(t *testing.T) {
	z, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("zap.NewDevelopment: %v", err)
	}
	l := NewZapLogger(z)
	ctx := t.Context()
	l.Debug(ctx, "debug", "k", "v")
	l.Info(ctx, "info", "k", "v")
	l.Warn(ctx, "warn", "k", "v")
	l.Error(ctx, "error", "k", "v")
}
