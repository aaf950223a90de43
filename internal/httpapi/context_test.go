package httpapi

import (
	"context"
	"testing"
	"time"
)

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("context not canceled")
	}
}

func TestJoinContextsFirstCancels(t *testing.T) {
	a, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	joined, cancel := joinContexts(a, context.Background())
	defer cancel()
	cancelA()
	waitDone(t, joined)
}

func TestJoinContextsSecondCancels(t *testing.T) {
	b, cancelB := context.WithCancel(context.Background())
	defer cancelB()
	joined, cancel := joinContexts(context.Background(), b)
	defer cancel()
	cancelB()
	waitDone(t, joined)
}

func TestSetBaseContextNilResets(t *testing.T) {
	SetBaseContext(nil)
	if serverBaseCtx == nil {
		t.Fatalf("base context must never be nil")
	}
	if serverBaseCtx.Err() != nil {
		t.Fatalf("base context unexpectedly done")
	}
}
