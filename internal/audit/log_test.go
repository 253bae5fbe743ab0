package audit

import (
	"context"
	"testing"
)

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
	if err := LogEvent(context.Background(), "   ", nil); err == nil {
		t.Fatal("expected error for blank event name")
	}
}

func TestLogEvent(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if err := LogEvent(ctx, "auth.login", map[string]any{"username": "alice@tenant_a"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
}

func TestWithRequestIDIgnoresBlank(t *testing.T) {
	ctx := context.Background()
	if got := WithRequestID(ctx, "  "); got != ctx {
		t.Error("blank request id should not derive a new context")
	}
}
