package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"LumiFM/logger"
	"LumiFM/model"
)

// SettingsKey 持久化播放设置使用的单一键，值为 JSON 快照
const SettingsKey = "lumifm:settings"

// SettingsStore 播放设置的键值存取。
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// redisSettingsStore 基于全局 Redis 客户端的实现。
type redisSettingsStore struct{}

// NewRedisSettingsStore 返回 Redis 设置存储。需要先 ConnectRedis。
func NewRedisSettingsStore() SettingsStore {
	return redisSettingsStore{}
}

func (redisSettingsStore) Get(ctx context.Context, key string) (string, error) {
	if RedisClient == nil {
		return "", redis.Nil
	}
	return RedisClient.Get(ctx, key).Result()
}

func (redisSettingsStore) Set(ctx context.Context, key, value string) error {
	if RedisClient == nil {
		return redis.Nil
	}
	return RedisClient.Set(ctx, key, value, 0).Err()
}

// MemoryStore 进程内的设置存储，测试与无 Redis 的本地运行用。
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string

	// FailSet 为 true 时 Set 返回错误，测试桥接层的吞错行为
	FailSet bool
}

// NewMemoryStore 创建内存设置存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet {
		return redis.Nil
	}
	m.data[key] = value
	return nil
}

// SettingsBridge 在播放器与持久化存储之间搬运设置。
// 写入是后台进行的、带尾随去抖的 fire-and-forget；
// 存储不可用时读写都静默降级，播放核心照常工作。
type SettingsBridge struct {
	store    SettingsStore
	debounce time.Duration

	mu      sync.Mutex
	pending *model.PersistedSettings
	timer   *time.Timer
}

// NewSettingsBridge 创建设置桥。debounce<=0 时使用 200ms。
func NewSettingsBridge(store SettingsStore, debounce time.Duration) *SettingsBridge {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &SettingsBridge{store: store, debounce: debounce}
}

// Load 读取上次保存的设置；任何错误都回退到默认值，从不失败。
func (b *SettingsBridge) Load(ctx context.Context) model.PersistedSettings {
	raw, err := b.store.Get(ctx, SettingsKey)
	if err != nil {
		if err != redis.Nil {
			logger.Warn("读取播放设置失败，使用默认值", logger.ErrorField(err))
		}
		return model.DefaultSettings()
	}

	var s model.PersistedSettings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		logger.Warn("播放设置损坏，使用默认值", logger.ErrorField(err))
		return model.DefaultSettings()
	}
	if s.Volume < 0 || s.Volume > 1 {
		s.Volume = 1.0
	}
	if s.PlayMode == "" {
		s.PlayMode = model.DefaultSettings().PlayMode
	}
	return s
}

// Save 记下待写入的设置并（重新）武装去抖定时器。调用立即返回。
func (b *SettingsBridge) Save(s model.PersistedSettings) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = &s
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, b.flush)
}

// Flush 立即写出待保存的设置，停机时调用。
func (b *SettingsBridge) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()
	b.flush()
}

func (b *SettingsBridge) flush() {
	b.mu.Lock()
	s := b.pending
	b.pending = nil
	b.mu.Unlock()
	if s == nil {
		return
	}

	data, err := json.Marshal(s)
	if err != nil {
		logger.Warn("序列化播放设置失败", logger.ErrorField(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := b.store.Set(ctx, SettingsKey, string(data)); err != nil {
		// 持久化失败只记日志，不打扰播放核心
		logger.Warn("保存播放设置失败", logger.ErrorField(err))
	}
}
