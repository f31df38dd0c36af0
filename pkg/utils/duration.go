package utils

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration formats seconds as a days/hours/minutes/seconds breakdown,
// e.g. "1d 2h 3m 4s". Zero-value leading units are omitted and negative
// inputs are clamped to "0s".
func FormatDuration(totalSeconds int64) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}

	d := totalSeconds / 86400
	h := (totalSeconds % 86400) / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60

	var parts []string
	if d > 0 {
		parts = append(parts, fmt.Sprintf("%dd", d))
	}
	if h > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	parts = append(parts, fmt.Sprintf("%ds", s))

	return strings.Join(parts, " ")
}

// FormatTimeLeft formats a remaining duration as "2d 4h 15m", floor-truncated
// to whole minutes. Negative durations render as "0m".
func FormatTimeLeft(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}

	totalMinutes := int64(remaining / time.Minute)
	d := totalMinutes / 1440
	h := (totalMinutes % 1440) / 60
	m := totalMinutes % 60

	var parts []string
	if d > 0 {
		parts = append(parts, fmt.Sprintf("%dd", d))
	}
	if h > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	parts = append(parts, fmt.Sprintf("%dm", m))

	return strings.Join(parts, " ")
}

// FormatCount formats an integer with thousands separators, e.g. 1234 -> "1,234".
func FormatCount(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	digits := fmt.Sprintf("%d", n)
	if len(digits) <= 3 {
		return sign + digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}
