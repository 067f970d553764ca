package util

import (
	"fmt"
	"strings"
)

// ErrWrap returns a function that unwraps a (value, error) pair,
// replacing the value with def whenever error is set
func ErrWrap[T any](def T) func(T, error) T {
	return func(value T, err error) T {
		if err != nil {
			return def
		}
		return value
	}
}

// ErrSuppress explicitly drops an error
func ErrSuppress(_ error) {}

// Excerpt cuts text to size runes
func Excerpt(text string, size ...int) string {
	limit := 25
	if len(size) > 0 {
		limit = size[0]
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit])
}

func HumanizeBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}
