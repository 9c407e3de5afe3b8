package model

// PersistedSettings is the subset of player state that survives restarts.
// Written by the persistence bridge on settings change, read once at startup.
type PersistedSettings struct {
	Volume         float64 `json:"volume"`
	PlayMode       string  `json:"playMode"`
	IsShuffled     bool    `json:"isShuffled"`
	CurrentTrackID int64   `json:"currentTrackId,omitempty"`
	CurrentTime    float64 `json:"currentTime,omitempty"`
}

// DefaultSettings 持久化存储不可用或为空时的回退值
func DefaultSettings() PersistedSettings {
	return PersistedSettings{
		Volume:   1.0,
		PlayMode: "sequential",
	}
}
