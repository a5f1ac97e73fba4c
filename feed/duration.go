package feed

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// outlineTimestampRe matches timestamps like (0:00), (15:40), (1:02:50)
// in episode descriptions.
var outlineTimestampRe = regexp.MustCompile(`\((\d{1,2}):(\d{2})(?::(\d{2}))?\)`)

// ExtractOutlineDuration extracts an episode duration from the timestamped
// outline in a description. Many feeds (Lex Fridman among them) omit
// itunes:duration but list every topic with a timestamp; the LAST timestamp
// is a lower bound on the episode length and we use it as the duration.
// Returns 0 if no timestamp is present.
func ExtractOutlineDuration(description string) int {
	matches := outlineTimestampRe.FindAllStringSubmatch(description, -1)
	if len(matches) == 0 {
		return 0
	}

	last := matches[len(matches)-1]
	first, _ := strconv.Atoi(last[1])
	second, _ := strconv.Atoi(last[2])

	if last[3] != "" {
		// (H:MM:SS)
		third, _ := strconv.Atoi(last[3])
		return first*3600 + second*60 + third
	}
	// (M:SS)
	return first*60 + second
}

// ParseDuration parses a duration value from a feed. Accepts raw seconds
// ("5400"), MM:SS ("45:00") and HH:MM:SS ("1:30:00"). Anything unparseable
// yields 0 rather than an error: a missing duration is routine feed noise.
func ParseDuration(value string) int {
	str := strings.TrimSpace(value)
	if str == "" {
		return 0
	}

	if strings.Contains(str, ":") {
		parts := strings.Split(str, ":")
		nums := make([]int, len(parts))
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				n = 0
			}
			nums[i] = n
		}

		switch len(nums) {
		case 3:
			return nums[0]*3600 + nums[1]*60 + nums[2]
		case 2:
			return nums[0]*60 + nums[1]
		}
		// Fall through and try raw seconds
	}

	n, err := strconv.Atoi(str)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// IsValidDuration reports whether a duration is plausible for display.
// More than 24 hours is treated as feed garbage.
func IsValidDuration(seconds int) bool {
	return seconds > 0 && seconds <= 86400
}

// FormatTimestamp formats seconds as H:MM:SS, or M:SS below one hour.
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatDurationHuman formats a duration like "1h 30m" or "45m".
// Returns "" for invalid durations.
func FormatDurationHuman(seconds int) string {
	if !IsValidDuration(seconds) {
		return ""
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		if m > 0 {
			return fmt.Sprintf("%dh %dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	if m < 1 {
		m = 1
	}
	return fmt.Sprintf("%dm", m)
}
