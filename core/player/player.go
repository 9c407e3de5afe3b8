package player

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"LumiFM/core/audio"
	"LumiFM/core/lyrics"
	"LumiFM/core/timeutil"
	"LumiFM/logger"
	"LumiFM/model"
)

// Player 权威的播放状态机。
//
// 所有状态变更都经由意图方法（Play/Pause/Next/…）或输出设备事件进入，
// 并在一把互斥锁后串行化；设备事件由单独的 goroutine 消费。
// 每次加载用递增的代号标记，代号过期的事件与异步播放结果一律丢弃，
// 保证"最后的意图获胜"：用户连按两次下一首时，第一首迟到的
// 播放完成不会把状态拉回去。
type Player struct {
	mu sync.Mutex

	out audio.Output

	playlist []model.Track
	cur      int // 当前曲目在 playlist 中的下标，-1 表示无曲目

	status   Status
	position float64
	duration float64

	volume     float64
	muted      bool
	preMuteVol float64

	mode    PlayMode
	shuffle *shuffler
	rng     *rand.Rand

	gen     uint64 // 当前加载代号
	lastErr string

	fallback  float64 // 歌词最后一行的默认时长
	preloader *audio.Preloader

	listeners []chan Snapshot

	stopOnce sync.Once
	done     chan struct{}
}

// Option 配置项
type Option func(*Player)

// WithRand 注入随机源，测试用。
func WithRand(rng *rand.Rand) Option {
	return func(p *Player) { p.rng = rng }
}

// WithPreloader 注入预热器，加载曲目时顺带预热后续音源。
func WithPreloader(pl *audio.Preloader) Option {
	return func(p *Player) { p.preloader = pl }
}

// WithLyricFallback 设置歌词最后一行的默认时长（秒）。
func WithLyricFallback(sec float64) Option {
	return func(p *Player) {
		if sec > 0 {
			p.fallback = sec
		}
	}
}

// WithSettings 用持久化设置恢复音量与播放模式。
func WithSettings(s model.PersistedSettings) Option {
	return func(p *Player) {
		p.volume = timeutil.Clamp01(s.Volume)
		if m, err := ParseMode(s.PlayMode); err == nil {
			p.mode = m
		}
		if s.IsShuffled {
			p.mode = ModeShuffle
		}
	}
}

// New 创建播放器并启动事件消费循环。
func New(out audio.Output, opts ...Option) *Player {
	p := &Player{
		out:      out,
		cur:      -1,
		status:   StatusIdle,
		volume:   1.0,
		mode:     ModeSequential,
		fallback: lyrics.DefaultLineDuration,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.out.SetVolume(p.volume)

	go p.consumeEvents()
	return p
}

// Close 停止事件循环并释放输出设备。
func (p *Player) Close() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.out.Close()
	})
}

// ---------- 意图 ----------

// SetPlaylist 替换歌单。正在播放的曲目若仍在新歌单中则保持连续，
// 否则停止回到空闲。歌单变化后随机轮次作废。
func (p *Player) SetPlaylist(tracks []model.Track) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var currentID int64 = -1
	if p.cur >= 0 && p.cur < len(p.playlist) {
		currentID = p.playlist[p.cur].ID
	}

	p.playlist = tracks
	p.shuffle = nil

	if currentID >= 0 {
		if idx := p.indexOfLocked(currentID); idx >= 0 {
			p.cur = idx
			p.notifyLocked()
			return
		}
	}
	// 当前曲目被移除或尚无曲目
	p.cur = -1
	if len(tracks) == 0 || currentID >= 0 {
		p.toIdleLocked()
	}
	p.notifyLocked()
}

// SelectTrack 按曲目 ID 选曲并开始播放。未知 ID 不改变状态。
func (p *Player) SelectTrack(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.indexOfLocked(id)
	if idx < 0 {
		logger.Warn("选曲失败，曲目不在歌单中", logger.Int64("trackId", id))
		return
	}
	p.loadLocked(idx, true)
}

// Restore 恢复上次会话的曲目与进度，保持暂停等待用户手势。
// 曲目已不在歌单中时什么都不做。
func (p *Player) Restore(trackID int64, position float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.indexOfLocked(trackID)
	if idx < 0 {
		return
	}
	p.loadLocked(idx, false)
	if position > 0 {
		if p.duration > 0 && position > p.duration {
			position = p.duration
		}
		p.position = position
		p.out.Seek(position)
		p.notifyLocked()
	}
}

// Play 开始或恢复播放。空闲且歌单非空时从第一首开始。
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.status {
	case StatusIdle:
		if len(p.playlist) == 0 {
			return
		}
		p.loadLocked(0, true)
	case StatusPaused:
		p.lastErr = ""
		p.startPlaybackLocked()
		p.notifyLocked()
	case StatusLoading, StatusPlaying:
		// 已经在路上
	}
}

// Pause 暂停播放。
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusPlaying && p.status != StatusLoading {
		return
	}
	p.out.Pause()
	p.status = StatusPaused
	p.notifyLocked()
}

// TogglePlay 在播放与暂停之间切换。
func (p *Player) TogglePlay() {
	p.mu.Lock()
	playing := p.status == StatusPlaying || p.status == StatusLoading
	p.mu.Unlock()
	if playing {
		p.Pause()
	} else {
		p.Play()
	}
}

// Next 切到下一首。单曲循环下重头播放当前曲目。
func (p *Player) Next() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advanceLocked(+1, p.isActiveLocked())
}

// Previous 切到上一首。单曲循环下重头播放当前曲目。
func (p *Player) Previous() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advanceLocked(-1, p.isActiveLocked())
}

// Seek 跳转到指定秒数，越界收敛到 [0, duration]。
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur < 0 {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if p.duration > 0 && seconds > p.duration {
		seconds = p.duration
	}
	p.position = seconds
	p.out.Seek(seconds)
	p.notifyLocked()
}

// SetVolume 设置音量，越界收敛到 [0,1]。静音期间只更新存储值，
// 不推给设备；解除静音时恢复。
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = timeutil.Clamp01(v)
	if !p.muted {
		p.out.SetVolume(p.volume)
	}
	p.notifyLocked()
}

// ToggleMute 切换静音。静音记住当前音量并向设备写 0，解除时恢复原音量。
func (p *Player) ToggleMute() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.muted {
		p.muted = false
		p.volume = p.preMuteVol
		p.out.SetVolume(p.volume)
	} else {
		p.muted = true
		p.preMuteVol = p.volume
		p.out.SetVolume(0)
	}
	p.notifyLocked()
}

// CyclePlayMode 按 sequential → repeat-one → shuffle 循环切换模式。
// 离开随机模式时当前曲目回到原歌单中的位置，保持连续。
func (p *Player) CyclePlayMode() PlayMode {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mode = p.mode.Cycle()
	switch p.mode {
	case ModeShuffle:
		// 轮次在第一次需要时懒生成
	default:
		p.shuffle = nil
		// 当前下标本就指向原歌单；曲目被移除时回到开头
		if p.cur >= len(p.playlist) {
			p.cur = 0
		}
	}
	p.notifyLocked()
	return p.mode
}

// Snapshot 返回当前状态投影。
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Subscribe 订阅状态变化。通道带缓冲，消费停滞时该订阅被移除。
func (p *Player) Subscribe() <-chan Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan Snapshot, 16)
	p.listeners = append(p.listeners, ch)
	return ch
}

// Unsubscribe 退订并关闭通道。
func (p *Player) Unsubscribe(ch <-chan Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, l := range p.listeners {
		if l == ch {
			close(l)
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return
		}
	}
}

// ---------- 设备事件 ----------

// consumeEvents 消费输出设备事件。代号过期的事件直接丢弃。
func (p *Player) consumeEvents() {
	for {
		select {
		case <-p.done:
			return
		case ev, ok := <-p.out.Events():
			if !ok {
				return
			}
			p.handleEvent(ev)
		}
	}
}

func (p *Player) handleEvent(ev audio.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Generation != p.gen {
		logger.Debug("丢弃过期的设备事件",
			logger.String("kind", string(ev.Kind)),
			logger.Uint64("generation", ev.Generation),
			logger.Uint64("current", p.gen))
		return
	}

	switch ev.Kind {
	case audio.EventDurationKnown:
		p.duration = ev.Duration
	case audio.EventStarted:
		p.status = StatusPlaying
		p.lastErr = ""
	case audio.EventTimeUpdate:
		p.position = ev.Time
	case audio.EventPaused:
		if p.status == StatusPlaying {
			p.status = StatusPaused
		}
	case audio.EventEnded:
		p.onEndedLocked()
	case audio.EventError:
		// 加载/播放错误不自动重试，转入暂停并把原因交给界面
		p.status = StatusPaused
		p.lastErr = ev.Err
		logger.Warn("输出设备报告错误",
			logger.String("reason", ev.Err),
			logger.Uint64("generation", ev.Generation))
	}
	p.notifyLocked()
}

// onEndedLocked 曲目自然结束：按当前模式解析下一首并自动续播，
// 会话内浏览器已授予过音频权限，不需要再次的用户手势。
// 无法解析（空歌单）时回到空闲。
func (p *Player) onEndedLocked() {
	if len(p.playlist) == 0 {
		p.toIdleLocked()
		return
	}
	p.advanceLocked(+1, true)
}

// ---------- 内部 ----------

// advanceLocked 按模式解析方向 dir（+1 下一首 / -1 上一首）并加载。
func (p *Player) advanceLocked(dir int, autoplay bool) {
	n := len(p.playlist)
	if n == 0 {
		p.toIdleLocked()
		p.notifyLocked()
		return
	}
	if p.cur < 0 {
		p.loadLocked(0, autoplay)
		return
	}

	switch p.mode {
	case ModeRepeatOne:
		// 单曲循环：切歌解析回当前曲目，从 0 重新开始
		p.loadLocked(p.cur, autoplay)
	case ModeShuffle:
		if p.shuffle == nil || p.shuffle.n != n {
			p.shuffle = newShuffler(p.rng, n)
		}
		if dir > 0 {
			p.loadLocked(p.shuffle.next(p.cur), autoplay)
		} else {
			p.loadLocked(p.shuffle.prev(p.cur), autoplay)
		}
	default: // sequential，双向回绕
		p.loadLocked(((p.cur+dir)%n+n)%n, autoplay)
	}
}

// loadLocked 把歌单中第 idx 首设为当前曲目并绑定到输出设备。
// 每次加载领取新代号；autoplay 时异步等待播放结果。
func (p *Player) loadLocked(idx int, autoplay bool) {
	if idx < 0 || idx >= len(p.playlist) {
		return
	}

	p.cur = idx
	p.gen++
	p.status = StatusLoading
	p.position = 0
	p.lastErr = ""
	track := &p.playlist[idx]
	p.duration = track.Duration

	p.out.Load(track, p.gen)
	p.warmAheadLocked(idx)

	if autoplay {
		p.startPlaybackLocked()
	} else {
		p.status = StatusPaused
	}
	p.notifyLocked()
}

// startPlaybackLocked 发起播放。Play 的结果异步送达，
// 结果回来时代号已变说明用户又切了歌，这份迟到的结果作废。
func (p *Player) startPlaybackLocked() {
	gen := p.gen
	go func() {
		err := p.out.Play()

		p.mu.Lock()
		defer p.mu.Unlock()
		if gen != p.gen {
			logger.Debug("丢弃过期的播放结果", logger.Uint64("generation", gen))
			return
		}
		if err != nil {
			p.status = StatusPaused
			p.lastErr = err.Error()
			logger.Warn("播放被输出设备拒绝", logger.ErrorField(err))
			p.notifyLocked()
			return
		}
		if p.status == StatusLoading {
			p.status = StatusPlaying
		}
		p.notifyLocked()
	}()
}

// warmAheadLocked 预热顺序意义上的下一首音源。
// 随机模式的下一首在抽取前不可知，预热按顺序近邻近似。
func (p *Player) warmAheadLocked(idx int) {
	if p.preloader == nil || len(p.playlist) < 2 {
		return
	}
	next := (idx + 1) % len(p.playlist)
	src := p.playlist[next].AudioSource
	if src != "" {
		p.preloader.Warm(context.Background(), []string{src})
	}
}

func (p *Player) toIdleLocked() {
	p.cur = -1
	p.status = StatusIdle
	p.position = 0
	p.duration = 0
	p.gen++ // 作废在途事件
}

func (p *Player) isActiveLocked() bool {
	return p.status == StatusPlaying || p.status == StatusLoading
}

func (p *Player) indexOfLocked(id int64) int {
	for i := range p.playlist {
		if p.playlist[i].ID == id {
			return i
		}
	}
	return -1
}

func (p *Player) snapshotLocked() Snapshot {
	s := Snapshot{
		Status:       p.status,
		IsPlaying:    p.status == StatusPlaying || p.status == StatusLoading,
		CurrentTime:  p.position,
		Duration:     p.duration,
		Volume:       p.volume,
		IsMuted:      p.muted,
		PlayMode:     p.mode,
		CurrentIndex: p.cur,
		PlaylistLen:  len(p.playlist),
		Error:        p.lastErr,
		ActiveLine:   -1,
		NextLine:     -1,
		UpdatedAt:    time.Now(),
	}
	if p.cur >= 0 && p.cur < len(p.playlist) {
		track := &p.playlist[p.cur]
		s.Track = track
		if len(track.Lyrics) > 0 {
			s.ActiveLine = lyrics.ActiveLineIndex(track.Lyrics, p.position)
			s.NextLine = lyrics.NextLineIndex(track.Lyrics, p.position)
			s.LineProgress = lyrics.Progress(track.Lyrics, s.ActiveLine, p.position, p.fallback)
		}
	}
	return s
}

// notifyLocked 向所有订阅者推送快照，通道满的订阅者被移除。
func (p *Player) notifyLocked() {
	if len(p.listeners) == 0 {
		return
	}
	snap := p.snapshotLocked()
	kept := p.listeners[:0]
	for _, l := range p.listeners {
		select {
		case l <- snap:
			kept = append(kept, l)
		default:
			close(l)
		}
	}
	p.listeners = kept
}

