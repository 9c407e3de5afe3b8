package player

import "fmt"

// PlayMode 下一首/上一首的解析策略
type PlayMode string

const (
	ModeSequential PlayMode = "sequential" // 顺序播放，双向回绕
	ModeRepeatOne  PlayMode = "repeat-one" // 单曲循环，切歌只重头播放当前曲目
	ModeShuffle    PlayMode = "shuffle"    // 随机播放，一轮内不重复
)

// Cycle 返回循环顺序中的下一个模式：
// sequential → repeat-one → shuffle → sequential。
func (m PlayMode) Cycle() PlayMode {
	switch m {
	case ModeSequential:
		return ModeRepeatOne
	case ModeRepeatOne:
		return ModeShuffle
	default:
		return ModeSequential
	}
}

// Valid 判断模式是否合法。
func (m PlayMode) Valid() bool {
	switch m {
	case ModeSequential, ModeRepeatOne, ModeShuffle:
		return true
	}
	return false
}

// ParseMode 解析模式字符串，非法值返回错误。
func ParseMode(s string) (PlayMode, error) {
	m := PlayMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown play mode %q", s)
	}
	return m, nil
}

// Status 播放器所处的状态
type Status string

const (
	StatusIdle    Status = "idle"    // 无曲目
	StatusLoading Status = "loading" // 已选曲，等待时长与就绪
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
)
