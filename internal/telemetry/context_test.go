package telemetry_test

import (
	"context"
	"strings"
	"testing"

	"github.com/petasbytes/figaro/internal/telemetry"
)

func TestTurnID_RoundTrip(t *testing.T) {
	ctx := telemetry.WithTurnID(context.Background(), "turn-123")
	got, ok := telemetry.TurnIDFromContext(ctx)
	if !ok || got != "turn-123" {
		t.Fatalf("want turn-123,true; got %q,%v", got, ok)
	}
}

func TestTurnID_EmptyIDRejectedOnRead(t *testing.T) {
	ctx := telemetry.WithTurnID(context.Background(), "")
	got, ok := telemetry.TurnIDFromContext(ctx)
	if ok || got != "" {
		t.Fatalf("want empty,false; got %q,%v", got, ok)
	}
}

func TestTurnID_MissingValue(t *testing.T) {
	got, ok := telemetry.TurnIDFromContext(context.Background())
	if ok || got != "" {
		t.Fatalf("want empty,false; got %q,%v", got, ok)
	}
}

func TestEnsureTurnID_KeepsExisting(t *testing.T) {
	ctx := telemetry.WithTurnID(context.Background(), "t1")
	ctx2, id := telemetry.EnsureTurnID(ctx)
	if id != "t1" || ctx2 != ctx {
		t.Fatalf("existing turn ID should be reused, got %q", id)
	}
}

func TestEnsureTurnID_GeneratesUnique(t *testing.T) {
	_, a := telemetry.EnsureTurnID(context.Background())
	ctx, b := telemetry.EnsureTurnID(context.Background())
	if a == b || !strings.HasPrefix(a, "turn-") {
		t.Fatalf("expected distinct turn-prefixed IDs, got %q and %q", a, b)
	}
	if got, _ := telemetry.TurnIDFromContext(ctx); got != b {
		t.Fatalf("context should carry generated ID, got %q", got)
	}
}
