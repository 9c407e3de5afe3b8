package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"LumiFM/logger"
)

// Handle 一份已就绪的音频资源。
// 通过 Close 确定性释放，不依赖 GC 回收底层资源。
type Handle struct {
	Source string
	Data   []byte

	mu     sync.Mutex
	closed bool
}

// Bytes 返回资源内容，已关闭的句柄返回 nil。
func (h *Handle) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Data
}

// Close 释放资源，可重复调用。
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.Data = nil
}

// FetchFunc 拉取单个音源的函数类型
type FetchFunc func(ctx context.Context, source string) ([]byte, error)

// Preloader 按音源 URI 预热音频资源，为即将播放的曲目暖场。
// 预热并发受固定扇出限制；单个音源失败不影响其余音源。
type Preloader struct {
	fetch FetchFunc
	sem   chan struct{}

	mu       sync.RWMutex
	ready    map[string]*Handle
	inflight map[string]bool

	wg sync.WaitGroup
}

// NewPreloader 创建预热器。fanout 为并发上限，非法值回退到 3。
func NewPreloader(fanout int, fetch FetchFunc) *Preloader {
	if fanout <= 0 {
		fanout = 3
	}
	return &Preloader{
		fetch:    fetch,
		sem:      make(chan struct{}, fanout),
		ready:    make(map[string]*Handle),
		inflight: make(map[string]bool),
	}
}

// Warm 开始预热给定音源。已就绪或正在预热的音源跳过，
// 调用立即返回，拉取在后台进行。
func (p *Preloader) Warm(ctx context.Context, sources []string) {
	for _, src := range sources {
		if src == "" {
			continue
		}

		p.mu.Lock()
		if p.ready[src] != nil || p.inflight[src] {
			p.mu.Unlock()
			continue
		}
		p.inflight[src] = true
		p.mu.Unlock()

		p.wg.Add(1)
		go p.warmOne(ctx, src)
	}
}

// warmOne 预热单个音源，失败只记日志并清除在途标记。
func (p *Preloader) warmOne(ctx context.Context, source string) {
	defer p.wg.Done()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		p.clearInflight(source)
		return
	}
	defer func() { <-p.sem }()

	data, err := p.fetch(ctx, source)
	if err != nil {
		logger.Warn("预热音源失败",
			logger.String("source", source),
			logger.ErrorField(err))
		p.clearInflight(source)
		return
	}

	p.mu.Lock()
	delete(p.inflight, source)
	p.ready[source] = &Handle{Source: source, Data: data}
	p.mu.Unlock()

	logger.Debug("音源预热完成",
		logger.String("source", source),
		logger.Int("bytes", len(data)))
}

// Get 返回已就绪的资源句柄，未命中返回 nil，从不阻塞。
func (p *Preloader) Get(source string) *Handle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready[source]
}

// Evict 释放单个音源。
func (p *Preloader) Evict(source string) {
	p.mu.Lock()
	h := p.ready[source]
	delete(p.ready, source)
	p.mu.Unlock()
	if h != nil {
		h.Close()
	}
}

// Clear 释放全部已就绪资源。
func (p *Preloader) Clear() {
	p.mu.Lock()
	handles := p.ready
	p.ready = make(map[string]*Handle)
	p.mu.Unlock()
	for _, h := range handles {
		h.Close()
	}
}

// Wait 等待所有在途预热结束，用于确定性停机。
func (p *Preloader) Wait() {
	p.wg.Wait()
}

func (p *Preloader) clearInflight(source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, source)
}

// HTTPFetcher 返回基于 HTTP GET 的拉取函数。
func HTTPFetcher(timeout time.Duration) FetchFunc {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context, source string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("预热请求失败，状态码: %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
}
