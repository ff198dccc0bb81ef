package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestRunIDAndFlow(t *testing.T) {
	ctx := context.Background()
	if _, ok := RunID(ctx); ok {
		t.Fatal("empty context must not carry a run id")
	}
	ctx = WithFlow(WithRunID(ctx, "run-1"), "students")
	if id, ok := RunID(ctx); !ok || id != "run-1" {
		t.Fatalf("RunID = %q, %v", id, ok)
	}
	if f, ok := Flow(ctx); !ok || f != "students" {
		t.Fatalf("Flow = %q, %v", f, ok)
	}
}

func TestWithDBTimeout_RespectsShorterParent(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ctx, cancel2 := WithDBTimeout(parent)
	defer cancel2()

	dl, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected deadline")
	}
	if time.Until(dl) > 50*time.Millisecond {
		t.Fatalf("deadline %v is later than the parent's", time.Until(dl))
	}
}

func TestWithTimeout_ZeroMeansNoDeadline(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatal("expected no deadline")
	}
}
