package audio

import (
	"errors"

	"LumiFM/model"
)

// ErrPlaybackBlocked 平台拒绝开始播放（浏览器自动播放限制的服务端等价物）。
// 调用方必须把它当作一次状态转移处理，而不是崩溃。
var ErrPlaybackBlocked = errors.New("playback blocked by output device")

// ErrNoSource 尚未加载任何音源
var ErrNoSource = errors.New("no audio source loaded")

// EventKind 输出设备事件类型
type EventKind string

const (
	EventDurationKnown EventKind = "durationKnown"
	EventStarted       EventKind = "started"
	EventTimeUpdate    EventKind = "timeUpdate"
	EventPaused        EventKind = "paused"
	EventEnded         EventKind = "ended"
	EventError         EventKind = "error"
)

// Event 由输出设备推送的播放事件。
// 同一次加载的事件按 durationKnown → started → timeUpdate* → (paused|ended|error)
// 的顺序交付，并携带该次加载的代号；消费方丢弃代号过期的事件。
type Event struct {
	Kind       EventKind
	Generation uint64
	Time       float64 // 当前播放位置（秒）
	Duration   float64 // 总时长（秒），durationKnown 事件携带
	Err        string  // error 事件携带的原因
}

// Output 封装底层音频播放原语。
// 同一时刻只有一个活跃音源：Load 会先停止并释放上一个音源。
// Load 不同步失败，坏音源以 error 事件交付。
type Output interface {
	// Load 绑定音源并把位置重置为 0，事件以 generation 标记。
	Load(track *model.Track, generation uint64)
	// Play 开始播放。可能返回 ErrPlaybackBlocked 或 ErrNoSource。
	Play() error
	// Pause 暂停播放。
	Pause()
	// Seek 跳转到指定秒数，越界时收敛到 [0, duration]。
	Seek(seconds float64)
	// SetVolume 设置音量，越界时收敛到 [0,1]。静音是播放器的标志位，
	// 不是音量 0，因此静音期间音量照常写入。
	SetVolume(v float64)
	// Events 返回事件通道。
	Events() <-chan Event
	// Close 释放底层资源并关闭事件通道。
	Close()
}
