package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"

	"LumiFM/core/lyrics"
	"LumiFM/logger"
)

// WatchLyricsDir 监听歌词目录，<trackID>.lrc 写入后热加载对应曲目的歌词。
// 解析或校验失败只记日志，目录与数据库保持原样。
// 阻塞直到 ctx 取消，调用方在独立 goroutine 中运行。
func (c *Catalog) WatchLyricsDir(ctx context.Context) error {
	dir := c.cfg.LyricsDir
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	logger.Info("歌词目录监听中", logger.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".lrc") {
				continue
			}
			c.reloadLyricFile(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("歌词目录监听错误", logger.ErrorField(err))
		}
	}
}

// reloadLyricFile 解析单个歌词文件并替换对应曲目的歌词。
func (c *Catalog) reloadLyricFile(p string) {
	base := strings.TrimSuffix(filepath.Base(p), ".lrc")
	trackID, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		logger.Debug("歌词文件名不是曲目ID，忽略", logger.String("file", p))
		return
	}

	data, err := os.ReadFile(p)
	if err != nil {
		logger.Warn("读取歌词文件失败", logger.String("file", p), logger.ErrorField(err))
		return
	}

	lines, err := lyrics.ParseLRC(string(data))
	if err != nil {
		logger.Warn("歌词文件解析失败，保留原歌词",
			logger.String("file", p),
			logger.ErrorField(err))
		return
	}

	if err := c.SetLyrics(trackID, lines); err != nil {
		logger.Warn("歌词热加载失败",
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
		return
	}
	logger.Info("歌词热加载完成",
		logger.Int64("trackId", trackID),
		logger.Int("lines", len(lines)))
}
