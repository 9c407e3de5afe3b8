package audio

import (
	"sync"
	"time"

	"LumiFM/logger"
	"LumiFM/model"
)

// ClockOutput 以实时时钟模拟的输出设备。
// 服务端没有真实扬声器，播放进度由 ticker 按墙钟推进，
// 到达曲目时长时发出 ended。事件分辨率不超过 1 秒。
type ClockOutput struct {
	mu sync.Mutex

	events chan Event
	tick   time.Duration

	gen      uint64
	track    *model.Track
	position float64
	duration float64
	playing  bool
	volume   float64

	stopTick chan struct{}
	closed   bool
}

// NewClockOutput 创建时钟输出。tick 为进度推进间隔，超过 1s 时收敛到 1s。
func NewClockOutput(tick time.Duration) *ClockOutput {
	if tick <= 0 || tick > time.Second {
		tick = time.Second
	}
	return &ClockOutput{
		events: make(chan Event, 64),
		tick:   tick,
		volume: 1.0,
	}
}

// Load 绑定新音源。上一个音源（含其 ticker）先行停止释放。
func (c *ClockOutput) Load(track *model.Track, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.stopTickerLocked()
	c.gen = generation
	c.track = track
	c.position = 0
	c.playing = false

	if track == nil || track.AudioSource == "" {
		c.duration = 0
		c.emitLocked(Event{Kind: EventError, Generation: generation, Err: "unsupported or missing audio source"})
		return
	}
	c.duration = track.Duration
	c.emitLocked(Event{Kind: EventDurationKnown, Generation: generation, Duration: c.duration})
}

// Play 开始推进播放时钟。
func (c *ClockOutput) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrNoSource
	}
	if c.track == nil || c.track.AudioSource == "" {
		return ErrNoSource
	}
	if c.playing {
		return nil
	}

	c.playing = true
	c.emitLocked(Event{Kind: EventStarted, Generation: c.gen, Time: c.position})

	stop := make(chan struct{})
	c.stopTick = stop
	go c.run(c.gen, stop)
	return nil
}

// Pause 暂停播放时钟。
func (c *ClockOutput) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.playing {
		return
	}
	c.stopTickerLocked()
	c.playing = false
	c.emitLocked(Event{Kind: EventPaused, Generation: c.gen, Time: c.position})
}

// Seek 跳转，越界收敛到 [0, duration]。
func (c *ClockOutput) Seek(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.track == nil {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if c.duration > 0 && seconds > c.duration {
		seconds = c.duration
	}
	c.position = seconds
	c.emitLocked(Event{Kind: EventTimeUpdate, Generation: c.gen, Time: c.position})
}

// SetVolume 记录音量，越界收敛到 [0,1]。
func (c *ClockOutput) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c.volume = v
}

// Volume 返回当前写入的音量。
func (c *ClockOutput) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Events 返回事件通道。
func (c *ClockOutput) Events() <-chan Event {
	return c.events
}

// Close 停止 ticker 并关闭事件通道。
func (c *ClockOutput) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopTickerLocked()
	c.closed = true
	close(c.events)
}

// run 按 tick 推进播放位置，走到曲目末尾时发出 ended。
func (c *ClockOutput) run(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last).Seconds()
			last = now

			c.mu.Lock()
			if c.closed || c.gen != gen || !c.playing {
				c.mu.Unlock()
				return
			}
			c.position += elapsed
			if c.duration > 0 && c.position >= c.duration {
				c.position = c.duration
				c.playing = false
				c.stopTick = nil
				c.emitLocked(Event{Kind: EventTimeUpdate, Generation: gen, Time: c.position})
				c.emitLocked(Event{Kind: EventEnded, Generation: gen, Time: c.position})
				c.mu.Unlock()
				return
			}
			c.emitLocked(Event{Kind: EventTimeUpdate, Generation: gen, Time: c.position})
			c.mu.Unlock()
		}
	}
}

func (c *ClockOutput) stopTickerLocked() {
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
}

// emitLocked 非阻塞投递事件。消费方停滞时丢弃并告警，播放时钟不等待任何人。
func (c *ClockOutput) emitLocked(ev Event) {
	select {
	case c.events <- ev:
	default:
		logger.Warn("audio event dropped, consumer too slow",
			logger.String("kind", string(ev.Kind)),
			logger.Uint64("generation", ev.Generation))
	}
}
