package logger

import (
	"strconv"
	"strings"
	"time"
)

// RoundMS rounds d to whole milliseconds. Negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	return max(d, 0).Round(time.Millisecond)
}

// Took is RoundMS of the time elapsed since start.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// Preview joins at most limit values and notes how many were left out,
// e.g. "a, b (+3 more)".
func Preview(values []string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", ")
	}
	rest := "+" + strconv.Itoa(len(values)-limit) + " more"
	if limit == 0 {
		return "(" + rest + ")"
	}
	return strings.Join(values[:limit], ", ") + " (" + rest + ")"
}
