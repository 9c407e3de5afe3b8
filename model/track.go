package model

import "time"

// Track represents one playable item in the artist catalog.
// Catalog tracks are immutable once loaded; the player references them, never copies.
type Track struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Artist      string      `json:"artist"`
	Album       string      `json:"album,omitempty"`
	Duration    float64     `json:"duration"`    // Duration in seconds
	AudioSource string      `json:"audioSource"` // Playable URI (presigned object URL or static path)
	CoverSource string      `json:"coverSource,omitempty"`
	AudioKey    string      `json:"-"` // Object storage key for the audio file, not exposed in API
	CoverKey    string      `json:"-"` // Object storage key for the cover art
	Lyrics      []LyricLine `json:"lyrics,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// LyricLine 一行带时间戳的歌词
// 同一曲目内按 StartTime 非降序排列；EndTime 不超过下一行的 StartTime。
type LyricLine struct {
	TrackID     int64   `json:"-" gorm:"index"`
	LineIndex   int     `json:"-"`
	StartTime   float64 `json:"startTime"`             // 秒
	EndTime     float64 `json:"endTime"`               // 秒，0 表示未知，由下一行或默认时长推导
	Text        string  `json:"text"`
	Translation string  `json:"translation,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"` // 时间轴可信度，0 表示未标注
}
