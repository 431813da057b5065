package format

import (
	"fmt"
	"strconv"
	"strings"
)

// Elapsed renders a duration in milliseconds as a compact human string:
// "500ms", "1.5s", "2m 3s", "1h 2m 3s".
func Elapsed(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	if ms < 1000 {
		return strconv.FormatInt(ms, 10) + "ms"
	}
	if ms < 60_000 {
		secs := strconv.FormatFloat(float64(ms)/1000, 'f', 1, 64)
		return strings.TrimSuffix(secs, ".0") + "s"
	}
	total := ms / 1000
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
