package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPreloader_WarmMakesSourceReady(t *testing.T) {
	p := NewPreloader(3, func(ctx context.Context, source string) ([]byte, error) {
		return []byte("data:" + source), nil
	})

	p.Warm(context.Background(), []string{"a", "b"})
	p.Wait()

	for _, src := range []string{"a", "b"} {
		h := p.Get(src)
		if h == nil {
			t.Fatalf("Get(%q) = nil after warm", src)
		}
		if string(h.Data) != "data:"+src {
			t.Errorf("Get(%q).Data = %q", src, h.Data)
		}
	}
	if p.Get("missing") != nil {
		t.Error("Get of unwarmed source should be nil")
	}
}

func TestPreloader_SkipsReadyAndInflight(t *testing.T) {
	var calls int32
	p := NewPreloader(3, func(ctx context.Context, source string) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("x"), nil
	})

	p.Warm(context.Background(), []string{"a"})
	p.Wait()
	p.Warm(context.Background(), []string{"a", "a"})
	p.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("fetch called %d times, want 1", got)
	}
}

func TestPreloader_FanoutBoundsConcurrency(t *testing.T) {
	const fanout = 2
	var cur, peak int32
	var mu sync.Mutex

	p := NewPreloader(fanout, func(ctx context.Context, source string) ([]byte, error) {
		n := atomic.AddInt32(&cur, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&cur, -1)
		return []byte("x"), nil
	})

	sources := make([]string, 8)
	for i := range sources {
		sources[i] = fmt.Sprintf("src-%d", i)
	}
	p.Warm(context.Background(), sources)
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	if peak > fanout {
		t.Errorf("peak concurrency = %d, want <= %d", peak, fanout)
	}
}

func TestPreloader_FailureIsIsolated(t *testing.T) {
	p := NewPreloader(3, func(ctx context.Context, source string) ([]byte, error) {
		if source == "bad" {
			return nil, errors.New("fetch failed")
		}
		return []byte("ok"), nil
	})

	p.Warm(context.Background(), []string{"bad", "good"})
	p.Wait()

	if p.Get("bad") != nil {
		t.Error("failed source should not be ready")
	}
	if p.Get("good") == nil {
		t.Error("good source should be ready despite sibling failure")
	}
}

func TestPreloader_FailedSourceCanBeRetried(t *testing.T) {
	var calls int32
	p := NewPreloader(3, func(ctx context.Context, source string) ([]byte, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("transient")
		}
		return []byte("ok"), nil
	})

	p.Warm(context.Background(), []string{"a"})
	p.Wait()
	p.Warm(context.Background(), []string{"a"})
	p.Wait()

	if p.Get("a") == nil {
		t.Error("retry after failure should succeed")
	}
}

func TestPreloader_EvictAndClear(t *testing.T) {
	p := NewPreloader(3, func(ctx context.Context, source string) ([]byte, error) {
		return []byte("x"), nil
	})
	p.Warm(context.Background(), []string{"a", "b"})
	p.Wait()

	h := p.Get("a")
	p.Evict("a")
	if p.Get("a") != nil {
		t.Error("evicted source still ready")
	}
	if h.Data != nil {
		t.Error("evicted handle not released")
	}

	p.Clear()
	if p.Get("b") != nil {
		t.Error("Clear left a source ready")
	}
}

func TestHandle_CloseIsIdempotent(t *testing.T) {
	h := &Handle{Source: "a", Data: []byte("x")}
	h.Close()
	h.Close()
	if h.Data != nil {
		t.Error("Data not released after Close")
	}
}

func TestPreloader_CanceledContextSkipsFetch(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	var fetched int32
	p := NewPreloader(1, func(ctx context.Context, source string) ([]byte, error) {
		atomic.AddInt32(&fetched, 1)
		close(started)
		<-block
		return []byte("x"), nil
	})

	// 占住唯一的并发配额
	p.Warm(context.Background(), []string{"slow"})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Warm(ctx, []string{"skipped"})

	close(block)
	p.Wait()

	if p.Get("skipped") != nil {
		t.Error("canceled warm should not produce a ready source")
	}
	if got := atomic.LoadInt32(&fetched); got != 1 {
		t.Errorf("fetch called %d times, want 1", got)
	}
}
