package server

import (
	"context"
	"testing"
	"time"

	"LumiFM/cache"
	"LumiFM/core/audio"
	"LumiFM/core/player"
	"LumiFM/model"
)

func TestPumpSettings_SavesChangedSubset(t *testing.T) {
	store := cache.NewMemoryStore()
	bridge := cache.NewSettingsBridge(store, time.Millisecond)

	ch := make(chan player.Snapshot, 4)
	ch <- player.Snapshot{Volume: 0.5, PlayMode: player.ModeSequential}
	ch <- player.Snapshot{
		Volume:      0.5,
		PlayMode:    player.ModeSequential,
		Track:       &model.Track{ID: 7},
		CurrentTime: 12,
	}
	close(ch)

	var last model.PersistedSettings
	if !pumpSettings(context.Background(), ch, bridge, &last) {
		t.Fatal("pumpSettings on closed channel = false, want true")
	}
	bridge.Flush()

	s := bridge.Load(context.Background())
	if s.Volume != 0.5 {
		t.Errorf("Volume = %v, want 0.5", s.Volume)
	}
	if s.CurrentTrackID != 7 || s.CurrentTime != 12 {
		t.Errorf("restored position = (%d, %v), want (7, 12)", s.CurrentTrackID, s.CurrentTime)
	}
}

// 通道因积压被播放器关闭后返回 true，调用方据此重新订阅。
func TestPumpSettings_ClosedChannelSignalsResubscribe(t *testing.T) {
	bridge := cache.NewSettingsBridge(cache.NewMemoryStore(), time.Millisecond)

	ch := make(chan player.Snapshot)
	close(ch)

	var last model.PersistedSettings
	if !pumpSettings(context.Background(), ch, bridge, &last) {
		t.Error("pumpSettings = false after channel close, want true")
	}
}

func TestPumpSettings_ContextCancelStops(t *testing.T) {
	bridge := cache.NewSettingsBridge(cache.NewMemoryStore(), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var last model.PersistedSettings
	if pumpSettings(ctx, make(chan player.Snapshot), bridge, &last) {
		t.Error("pumpSettings = true after cancel, want false")
	}
}

func TestPersistSettings_WritesPlayerChanges(t *testing.T) {
	store := cache.NewMemoryStore()
	bridge := cache.NewSettingsBridge(store, time.Millisecond)

	pl := player.New(audio.NewMockOutput())
	t.Cleanup(pl.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go persistSettings(ctx, pl, bridge)

	// 订阅在后台建立，反复触发直到音量落盘
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pl.SetVolume(0.25)
		if bridge.Load(ctx).Volume == 0.25 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("volume change never persisted, stored settings: %+v", bridge.Load(ctx))
}
