package player

import (
	"time"

	"LumiFM/model"
)

// Snapshot 播放器状态的只读投影，推送给界面渲染。
// 歌词字段是由播放位置派生的投影，不属于权威状态。
type Snapshot struct {
	Track        *model.Track `json:"track,omitempty"`
	Status       Status       `json:"status"`
	IsPlaying    bool         `json:"isPlaying"`
	CurrentTime  float64      `json:"currentTime"`
	Duration     float64      `json:"duration"`
	Volume       float64      `json:"volume"`
	IsMuted      bool         `json:"isMuted"`
	PlayMode     PlayMode     `json:"playMode"`
	CurrentIndex int          `json:"currentIndex"`
	PlaylistLen  int          `json:"playlistLen"`
	Error        string       `json:"error,omitempty"`

	ActiveLine   int     `json:"activeLine"` // -1 表示尚未开始
	NextLine     int     `json:"nextLine"`   // -1 表示没有下一行
	LineProgress float64 `json:"lineProgress"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Settings 提取需要持久化的设置子集。
func (s *Snapshot) Settings() model.PersistedSettings {
	ps := model.PersistedSettings{
		Volume:     s.Volume,
		PlayMode:   string(s.PlayMode),
		IsShuffled: s.PlayMode == ModeShuffle,
	}
	if s.Track != nil {
		ps.CurrentTrackID = s.Track.ID
		ps.CurrentTime = s.CurrentTime
	}
	return ps
}
