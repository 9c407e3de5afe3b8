package lyrics

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"LumiFM/core/timeutil"
	"LumiFM/model"
)

// BundleVersion 导出 JSON 包的格式版本
const BundleVersion = "1.0"

// ParseLRC 解析 [MM:SS.CC]text 形式的逐行歌词。
// 每行一个时间标签，空行与无法解析的行跳过；
// 相邻行的结束时间由下一行的开始时间推导，最后一行留空。
func ParseLRC(raw string) ([]model.LyricLine, error) {
	var out []model.LyricLine
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "[") {
			continue
		}
		close := strings.Index(line, "]")
		if close < 0 {
			continue
		}
		tag := line[1:close]
		// 跳过 [ar:] [ti:] 之类的元数据标签
		sec, err := timeutil.ParseLRCTime(tag)
		if err != nil {
			continue
		}
		text := strings.TrimSpace(line[close+1:])
		if text == "" {
			continue
		}
		out = append(out, model.LyricLine{
			LineIndex: len(out),
			StartTime: sec,
			Text:      text,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no timed lines found in lrc input")
	}
	for i := 0; i+1 < len(out); i++ {
		out[i].EndTime = out[i+1].StartTime
	}
	if issues := Validate(out); len(issues) != 0 {
		return nil, fmt.Errorf("lrc input has invalid timing: %s", issues[0].Message)
	}
	return out, nil
}

// FormatLRC 导出为 LRC 文本。对于由 ParseLRC 读入的数据，
// 导出结果在厘秒精度内与输入一致。
func FormatLRC(lines []model.LyricLine) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("[")
		b.WriteString(timeutil.FormatLRCTime(l.StartTime))
		b.WriteString("]")
		b.WriteString(l.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// ParsePlain 解析纯文本歌词：每行一个单元，空行跳过，
// 按调用方给定的间隔（秒）均匀分配时间轴。
func ParsePlain(raw string, interval float64) ([]model.LyricLine, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("plain lyric interval must be positive, got %.2f", interval)
	}
	var out []model.LyricLine
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		start := float64(len(out)) * interval
		out = append(out, model.LyricLine{
			LineIndex: len(out),
			StartTime: start,
			EndTime:   start + interval,
			Text:      line,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no lyric lines found in plain input")
	}
	return out, nil
}

// Bundle 歌词 JSON 导出包
type Bundle struct {
	ID         string            `json:"id"`
	Track      BundleTrack       `json:"track"`
	Lyrics     []model.LyricLine `json:"lyrics"`
	ExportDate time.Time         `json:"exportDate"`
	Version    string            `json:"version"`
}

// BundleTrack 导出包中的曲目标识
type BundleTrack struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// ExportBundle 构造歌词 JSON 导出包。
func ExportBundle(track *model.Track, lines []model.LyricLine) ([]byte, error) {
	b := Bundle{
		ID:         uuid.New().String(),
		Track:      BundleTrack{Title: track.Title, Artist: track.Artist},
		Lyrics:     lines,
		ExportDate: time.Now().UTC(),
		Version:    BundleVersion,
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lyric bundle: %w", err)
	}
	return data, nil
}

// ImportBundle 读入歌词 JSON 导出包并校验时间轴。
func ImportBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lyric bundle: %w", err)
	}
	if issues := Validate(b.Lyrics); len(issues) != 0 {
		return nil, fmt.Errorf("bundle has invalid timing: %s", issues[0].Message)
	}
	return &b, nil
}
