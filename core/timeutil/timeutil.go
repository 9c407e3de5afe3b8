package timeutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatSeconds renders a second count as M:SS for transport displays.
// Negative or NaN input renders as 0:00.
func FormatSeconds(sec float64) string {
	if math.IsNaN(sec) || sec < 0 {
		sec = 0
	}
	total := int(sec)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// ParseClock parses "M:SS" back to seconds.
func ParseClock(s string) (float64, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil || m < 0 {
		return 0, fmt.Errorf("invalid minutes in %q", s)
	}
	sec, err := strconv.Atoi(parts[1])
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid seconds in %q", s)
	}
	return float64(m*60 + sec), nil
}

// ParseLRCTime parses an LRC timestamp body "MM:SS.CC" to seconds.
// The centisecond part is optional ("MM:SS" is accepted).
func ParseLRCTime(s string) (float64, error) {
	s = strings.TrimSpace(s)
	colon := strings.Index(s, ":")
	if colon <= 0 {
		return 0, fmt.Errorf("invalid lrc timestamp %q", s)
	}
	m, err := strconv.Atoi(s[:colon])
	if err != nil || m < 0 {
		return 0, fmt.Errorf("invalid minutes in lrc timestamp %q", s)
	}
	rest := s[colon+1:]
	secPart := rest
	centis := 0
	if dot := strings.IndexAny(rest, ".:"); dot >= 0 {
		secPart = rest[:dot]
		frac := rest[dot+1:]
		// 兼容两位和三位小数，统一按厘秒截断
		if len(frac) > 2 {
			frac = frac[:2]
		}
		if frac != "" {
			centis, err = strconv.Atoi(frac)
			if err != nil || centis < 0 {
				return 0, fmt.Errorf("invalid fraction in lrc timestamp %q", s)
			}
			if len(frac) == 1 {
				centis *= 10
			}
		}
	}
	sec, err := strconv.Atoi(secPart)
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid seconds in lrc timestamp %q", s)
	}
	return float64(m)*60 + float64(sec) + float64(centis)/100, nil
}

// FormatLRCTime renders seconds as "MM:SS.CC", the granularity of the LRC format.
// Values round-trip through ParseLRCTime modulo centisecond rounding.
func FormatLRCTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	totalCentis := int(math.Round(sec * 100))
	m := totalCentis / 6000
	s := (totalCentis % 6000) / 100
	c := totalCentis % 100
	return fmt.Sprintf("%02d:%02d.%02d", m, s, c)
}

// Clamp01 clamps v into [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampRange clamps v into [lo,hi].
func ClampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
