package catalog

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"LumiFM/config"
	"LumiFM/core/lyrics"
	"LumiFM/logger"
	"LumiFM/model"
	"LumiFM/repository"
	"LumiFM/storage"
)

// ErrTrackNotFound 目录中不存在该曲目。
var ErrTrackNotFound = errors.New("track not in catalog")

// Catalog 艺人曲目目录。启动时从数据库装配一次，
// 对播放核心只读；歌词是唯一会在运行期替换的部分
// （管理端编辑或歌词文件热加载），整份替换、先校验后落库。
type Catalog struct {
	mu     sync.RWMutex
	tracks []model.Track

	trackRepo repository.TrackRepository
	lyricRepo repository.LyricRepository
	cfg       *config.Config

	onUpdate func([]model.Track)
}

// New 创建曲目目录。
func New(trackRepo repository.TrackRepository, lyricRepo repository.LyricRepository, cfg *config.Config) *Catalog {
	return &Catalog{
		trackRepo: trackRepo,
		lyricRepo: lyricRepo,
		cfg:       cfg,
	}
}

// OnUpdate 注册目录变化回调（歌词替换后把新歌单推给播放器）。
func (c *Catalog) OnUpdate(fn func([]model.Track)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// Load 从数据库装配目录：曲目按播放顺序，歌词逐曲目挂载，
// 配置了对象存储时音频与封面解析为预签名链接。
func (c *Catalog) Load(ctx context.Context) error {
	rows, err := c.trackRepo.GetAllTracks()
	if err != nil {
		return fmt.Errorf("failed to load track catalog: %w", err)
	}

	tracks := make([]model.Track, 0, len(rows))
	for _, row := range rows {
		t := *row

		if storage.Enabled() {
			if t.AudioKey != "" {
				u, err := storage.PresignedURL(ctx, c.cfg.MinioBucket, t.AudioKey)
				if err != nil {
					logger.Warn("音频预签名失败，跳过该曲目",
						logger.Int64("trackId", t.ID),
						logger.ErrorField(err))
					continue
				}
				t.AudioSource = u
			}
			if t.CoverKey != "" {
				if u, err := storage.PresignedURL(ctx, c.cfg.MinioBucket, t.CoverKey); err == nil {
					t.CoverSource = u
				}
			}
		} else {
			if t.AudioKey != "" {
				t.AudioSource = path.Join("/static/audio", t.AudioKey)
			}
			if t.CoverKey != "" {
				t.CoverSource = path.Join("/static/covers", t.CoverKey)
			}
		}

		lines, err := c.lyricRepo.GetLinesByTrackID(t.ID)
		if err != nil {
			logger.Warn("加载歌词失败，曲目无歌词继续",
				logger.Int64("trackId", t.ID),
				logger.ErrorField(err))
		} else if len(lines) > 0 {
			if issues := lyrics.Validate(lines); len(issues) != 0 {
				logger.Warn("歌词时间轴校验失败，曲目无歌词继续",
					logger.Int64("trackId", t.ID),
					logger.String("issue", issues[0].Message))
			} else {
				t.Lyrics = lines
			}
		}

		tracks = append(tracks, t)
	}

	c.mu.Lock()
	c.tracks = tracks
	c.mu.Unlock()

	logger.Info("曲目目录装配完成", logger.Int("tracks", len(tracks)))
	return nil
}

// Tracks 返回目录快照。
func (c *Catalog) Tracks() []model.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Track, len(c.tracks))
	copy(out, c.tracks)
	return out
}

// Get 按 ID 返回曲目副本。
func (c *Catalog) Get(id int64) (*model.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.tracks {
		if c.tracks[i].ID == id {
			t := c.tracks[i]
			return &t, true
		}
	}
	return nil, false
}

// AddTrack 在目录末尾新增曲目：先落库，再重新装配目录并推送新歌单。
func (c *Catalog) AddTrack(ctx context.Context, track *model.Track) (int64, error) {
	c.mu.RLock()
	order := len(c.tracks)
	c.mu.RUnlock()

	id, err := c.trackRepo.CreateTrack(track, order)
	if err != nil {
		return 0, fmt.Errorf("failed to create track: %w", err)
	}
	if err := c.Load(ctx); err != nil {
		return id, err
	}
	c.notifyUpdate()
	return id, nil
}

// RemoveTrack 删除曲目及其歌词，再重新装配目录并推送新歌单。
// 正在播放的曲目被删除时，播放器按歌单替换规则自行回到空闲。
func (c *Catalog) RemoveTrack(ctx context.Context, trackID int64) error {
	row, err := c.trackRepo.GetTrackByID(trackID)
	if err != nil {
		return fmt.Errorf("failed to look up track %d: %w", trackID, err)
	}
	if row == nil {
		return fmt.Errorf("track %d: %w", trackID, ErrTrackNotFound)
	}
	if err := c.trackRepo.DeleteTrack(trackID); err != nil {
		return err
	}
	if err := c.lyricRepo.DeleteLines(trackID); err != nil {
		logger.Warn("删除歌词失败",
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
	}
	if err := c.Load(ctx); err != nil {
		return err
	}
	c.notifyUpdate()
	return nil
}

// SetDuration 更新曲目的探测时长并同步内存目录。
func (c *Catalog) SetDuration(trackID int64, seconds float64) error {
	if seconds <= 0 {
		return fmt.Errorf("duration must be positive, got %v", seconds)
	}

	c.mu.RLock()
	found := false
	for i := range c.tracks {
		if c.tracks[i].ID == trackID {
			found = true
			break
		}
	}
	c.mu.RUnlock()
	if !found {
		return fmt.Errorf("track %d: %w", trackID, ErrTrackNotFound)
	}

	if err := c.trackRepo.UpdateTrackDuration(trackID, seconds); err != nil {
		return err
	}

	c.mu.Lock()
	for i := range c.tracks {
		if c.tracks[i].ID == trackID {
			c.tracks[i].Duration = seconds
			break
		}
	}
	c.mu.Unlock()

	c.notifyUpdate()
	return nil
}

// notifyUpdate 把目录快照推给更新回调。
func (c *Catalog) notifyUpdate() {
	c.mu.RLock()
	fn := c.onUpdate
	var snapshot []model.Track
	if fn != nil {
		snapshot = make([]model.Track, len(c.tracks))
		copy(snapshot, c.tracks)
	}
	c.mu.RUnlock()
	if fn != nil {
		fn(snapshot)
	}
}

// SetLyrics 整份替换一首曲目的歌词：先校验，再落库，最后替换内存目录
// 并触发更新回调。校验失败返回问题列表组成的错误，什么都不改。
func (c *Catalog) SetLyrics(trackID int64, lines []model.LyricLine) error {
	if issues := lyrics.Validate(lines); len(issues) != 0 {
		return fmt.Errorf("lyric timing invalid: %s", issues[0].Message)
	}
	if err := c.lyricRepo.ReplaceLines(trackID, lines); err != nil {
		return err
	}

	c.mu.Lock()
	found := false
	for i := range c.tracks {
		if c.tracks[i].ID == trackID {
			c.tracks[i].Lyrics = lines
			found = true
			break
		}
	}
	var fn func([]model.Track)
	var snapshot []model.Track
	if found && c.onUpdate != nil {
		fn = c.onUpdate
		snapshot = make([]model.Track, len(c.tracks))
		copy(snapshot, c.tracks)
	}
	c.mu.Unlock()

	if !found {
		return fmt.Errorf("track %d not in catalog", trackID)
	}
	if fn != nil {
		fn(snapshot)
	}
	return nil
}
