package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnBuildStart(ctx, "img_001")
	p.OnBuildComplete(ctx, "img_001", 5, 5, time.Millisecond)
	p.OnLayoutStart(ctx, "incubator", 5)
	p.OnLayoutComplete(ctx, "incubator", time.Millisecond, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "graph")
	c.OnCacheMiss(ctx, "layout")
	c.OnCacheSet(ctx, "layout", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "config.example.com", "/kinship.json")
	h.OnResponse(ctx, "GET", "config.example.com", "/kinship.json", 200, time.Second)
	h.OnError(ctx, "GET", "config.example.com", "/kinship.json", nil)

	// Reveal hooks
	r := NoopRevealHooks{}
	r.OnSequenceStart("cluster-a", 1, 4)
	r.OnStageStart("cluster-a", 1, "parents")
	r.OnSequenceCancel("cluster-a", 1)
	r.OnSequenceComplete("cluster-a", 2, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}
	if _, ok := Reveal().(NoopRevealHooks); !ok {
		t.Error("Reveal() should return NoopRevealHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	customReveal := &testRevealHooks{}
	SetRevealHooks(customReveal)
	if Reveal() != customReveal {
		t.Error("SetRevealHooks should set custom hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
	if _, ok := Reveal().(NoopRevealHooks); !ok {
		t.Error("Reset() should restore NoopRevealHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
type testRevealHooks struct{ NoopRevealHooks }
