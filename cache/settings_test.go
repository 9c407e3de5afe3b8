package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"LumiFM/model"
)

func TestSettingsBridge_LoadDefaultsWhenEmpty(t *testing.T) {
	b := NewSettingsBridge(NewMemoryStore(), time.Millisecond)

	s := b.Load(context.Background())

	want := model.DefaultSettings()
	if s != want {
		t.Errorf("Load = %+v, want defaults %+v", s, want)
	}
}

func TestSettingsBridge_LoadDefaultsOnCorruptValue(t *testing.T) {
	store := NewMemoryStore()
	store.Set(context.Background(), SettingsKey, "{not json")
	b := NewSettingsBridge(store, time.Millisecond)

	s := b.Load(context.Background())

	if s != model.DefaultSettings() {
		t.Errorf("Load of corrupt value = %+v, want defaults", s)
	}
}

func TestSettingsBridge_LoadSanitizesBadFields(t *testing.T) {
	store := NewMemoryStore()
	store.Set(context.Background(), SettingsKey, `{"volume":3.5,"playMode":"repeat-one"}`)
	b := NewSettingsBridge(store, time.Millisecond)

	s := b.Load(context.Background())

	if s.Volume != 1.0 {
		t.Errorf("Volume = %v, want 1.0 (out-of-range reset)", s.Volume)
	}
	if s.PlayMode != "repeat-one" {
		t.Errorf("PlayMode = %q, want repeat-one", s.PlayMode)
	}
}

func TestSettingsBridge_SaveRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	b := NewSettingsBridge(store, time.Millisecond)

	b.Save(model.PersistedSettings{
		Volume:         0.5,
		PlayMode:       "shuffle",
		CurrentTrackID: 7,
		CurrentTime:    33.5,
	})
	b.Flush()

	s := b.Load(context.Background())
	if s.Volume != 0.5 || s.PlayMode != "shuffle" || s.CurrentTrackID != 7 || s.CurrentTime != 33.5 {
		t.Errorf("Load after Save = %+v", s)
	}
}

func TestSettingsBridge_DebounceCoalescesWrites(t *testing.T) {
	store := NewMemoryStore()
	b := NewSettingsBridge(store, 100*time.Millisecond)

	for i := 1; i <= 5; i++ {
		b.Save(model.PersistedSettings{Volume: 1, PlayMode: "sequential", CurrentTrackID: int64(i)})
	}

	// 去抖窗口内不应落盘
	if _, err := store.Get(context.Background(), SettingsKey); err == nil {
		t.Error("write landed before debounce window elapsed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		raw, err := store.Get(context.Background(), SettingsKey)
		if err == nil {
			var s model.PersistedSettings
			if err := json.Unmarshal([]byte(raw), &s); err != nil {
				t.Fatalf("stored value is not valid JSON: %v", err)
			}
			if s.CurrentTrackID != 5 {
				t.Errorf("stored CurrentTrackID = %d, want 5 (last write wins)", s.CurrentTrackID)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("debounced write never landed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSettingsBridge_SwallowsStoreErrors(t *testing.T) {
	store := NewMemoryStore()
	store.FailSet = true
	b := NewSettingsBridge(store, time.Millisecond)

	// 写失败不 panic、不返回错误
	b.Save(model.PersistedSettings{Volume: 0.5, PlayMode: "sequential"})
	b.Flush()

	if s := b.Load(context.Background()); s != model.DefaultSettings() {
		t.Errorf("Load after failed save = %+v, want defaults", s)
	}
}

func TestSettingsBridge_FlushWithoutPendingIsNoop(t *testing.T) {
	b := NewSettingsBridge(NewMemoryStore(), time.Millisecond)
	b.Flush()
}
