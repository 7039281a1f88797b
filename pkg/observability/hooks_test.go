package observability

import (
	"context"
	"testing"
	"time"
)

type testMatchHooks struct {
	starts, completes int
}

func (h *testMatchHooks) OnMatchStart(context.Context, string, int) { h.starts++ }
func (h *testMatchHooks) OnMatchComplete(context.Context, string, int, time.Duration, error) {
	h.completes++
}

type testCacheHooks struct {
	hits int
}

func (h *testCacheHooks) OnCacheHit(context.Context, string)      { h.hits++ }
func (h *testCacheHooks) OnCacheMiss(context.Context, string)     {}
func (h *testCacheHooks) OnCacheSet(context.Context, string, int) {}

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	m := NoopMatchHooks{}
	m.OnMatchStart(ctx, "shapes", 3)
	m.OnMatchComplete(ctx, "shapes", 5, time.Second, nil)

	r := NoopRewriteHooks{}
	r.OnRewriteStart(ctx, "shapes")
	r.OnRewriteComplete(ctx, "shapes", 2, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "match")
	c.OnCacheMiss(ctx, "match")
	c.OnCacheSet(ctx, "match", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := Match().(NoopMatchHooks); !ok {
		t.Error("Match() should return NoopMatchHooks by default")
	}
	if _, ok := Rewrite().(NoopRewriteHooks); !ok {
		t.Error("Rewrite() should return NoopRewriteHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	customMatch := &testMatchHooks{}
	SetMatchHooks(customMatch)
	if Match() != customMatch {
		t.Error("SetMatchHooks should set custom hooks")
	}
	Match().OnMatchStart(context.Background(), "g", 2)
	if customMatch.starts != 1 {
		t.Error("custom hooks should receive events")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// nil registrations are ignored
	SetMatchHooks(nil)
	if Match() != customMatch {
		t.Error("SetMatchHooks(nil) should keep existing hooks")
	}

	Reset()
	if _, ok := Match().(NoopMatchHooks); !ok {
		t.Error("Reset should restore noop hooks")
	}
}
