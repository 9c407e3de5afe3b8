package lyrics

import (
	"fmt"
	"sort"

	"LumiFM/model"
)

// DefaultLineDuration 最后一行歌词缺少结束时间时使用的默认时长（秒）
const DefaultLineDuration = 5.0

// ActiveLineIndex 返回播放位置 t 对应的歌词行下标。
// t 在第一行开始之前返回 -1；到达或超过最后一行后，最后一行保持激活，
// 歌词不会提前"结束"。对单调递增的 t 序列，返回值单调非降。
func ActiveLineIndex(lines []model.LyricLine, t float64) int {
	if len(lines) == 0 {
		return -1
	}
	// 最后一个 StartTime <= t 的行即为当前行
	return sort.Search(len(lines), func(i int) bool {
		return lines[i].StartTime > t
	}) - 1
}

// NextLineIndex 返回当前行之后的下一行下标，没有则返回 -1。
func NextLineIndex(lines []model.LyricLine, t float64) int {
	idx := ActiveLineIndex(lines, t)
	if idx+1 >= len(lines) {
		return -1
	}
	return idx + 1
}

// EndTimeOf 计算第 i 行的有效结束时间：显式 EndTime 优先，
// 其次是下一行的开始时间，最后一行回退到 StartTime+fallback。
func EndTimeOf(lines []model.LyricLine, i int, fallback float64) float64 {
	if i < 0 || i >= len(lines) {
		return 0
	}
	if lines[i].EndTime > 0 {
		return lines[i].EndTime
	}
	if i+1 < len(lines) {
		return lines[i+1].StartTime
	}
	if fallback <= 0 {
		fallback = DefaultLineDuration
	}
	return lines[i].StartTime + fallback
}

// Progress 返回 t 在第 i 行内的进度占比，限制在 [0,1]。
// 仅用于界面进度指示，不参与播放状态。
func Progress(lines []model.LyricLine, i int, t, fallback float64) float64 {
	if i < 0 || i >= len(lines) {
		return 0
	}
	start := lines[i].StartTime
	end := EndTimeOf(lines, i, fallback)
	if end <= start {
		return 0
	}
	p := (t - start) / (end - start)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// ShiftAll 将所有行的时间整体平移 offset 秒，结果不允许为负。
// 返回平移后的新切片，原切片不修改。
func ShiftAll(lines []model.LyricLine, offset float64) []model.LyricLine {
	out := make([]model.LyricLine, len(lines))
	copy(out, lines)
	for i := range out {
		out[i].StartTime += offset
		if out[i].StartTime < 0 {
			out[i].StartTime = 0
		}
		if out[i].EndTime > 0 {
			out[i].EndTime += offset
			if out[i].EndTime < 0 {
				out[i].EndTime = 0
			}
		}
	}
	return out
}

// RetimeLine 重设第 index 行的开始时间，并把结束时间对齐到下一行的开始
// （最后一行使用 newStart+fallback）。这是播放加载之外唯一的歌词修改入口，
// 修改后必须重新校验顺序；校验失败时返回问题列表组成的错误，原数据不变。
func RetimeLine(lines []model.LyricLine, index int, newStart, fallback float64) ([]model.LyricLine, error) {
	if index < 0 || index >= len(lines) {
		return nil, fmt.Errorf("lyric line index %d out of range [0,%d)", index, len(lines))
	}
	if newStart < 0 {
		newStart = 0
	}
	if fallback <= 0 {
		fallback = DefaultLineDuration
	}

	out := make([]model.LyricLine, len(lines))
	copy(out, lines)
	out[index].StartTime = newStart
	if index+1 < len(out) {
		out[index].EndTime = out[index+1].StartTime
	} else {
		out[index].EndTime = newStart + fallback
	}

	if issues := Validate(out); len(issues) != 0 {
		return nil, fmt.Errorf("retime would break lyric ordering: %s", issues[0].Message)
	}
	return out, nil
}

// Issue 描述一条歌词时间轴校验问题，面向人类可读。
type Issue struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Validate 校验歌词时间轴的排序约束：
// 开始时间非负且非降序，结束时间不超过下一行的开始时间。
// 只报告问题，不做自动修正。
func Validate(lines []model.LyricLine) []Issue {
	var issues []Issue
	for i := range lines {
		if lines[i].StartTime < 0 {
			issues = append(issues, Issue{
				Line:    i,
				Message: fmt.Sprintf("line %d starts at negative time %.2f", i, lines[i].StartTime),
			})
		}
		if lines[i].EndTime > 0 && lines[i].EndTime < lines[i].StartTime {
			issues = append(issues, Issue{
				Line:    i,
				Message: fmt.Sprintf("line %d ends at %.2f before it starts at %.2f", i, lines[i].EndTime, lines[i].StartTime),
			})
		}
		if i+1 < len(lines) {
			if lines[i+1].StartTime < lines[i].StartTime {
				issues = append(issues, Issue{
					Line:    i + 1,
					Message: fmt.Sprintf("line %d starts at %.2f before line %d at %.2f", i+1, lines[i+1].StartTime, i, lines[i].StartTime),
				})
			}
			if lines[i].EndTime > 0 && lines[i].EndTime > lines[i+1].StartTime {
				issues = append(issues, Issue{
					Line:    i,
					Message: fmt.Sprintf("line %d ends at %.2f past the start of line %d at %.2f", i, lines[i].EndTime, i+1, lines[i+1].StartTime),
				})
			}
		}
	}
	return issues
}
