package utils

import (
	"fmt"
	"time"
)

// FormatRoundedUnit renders d in its largest whole unit: "45s", "12m", "3h".
// Hours keep one decimal below ten.
func FormatRoundedUnit(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int64(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int64(d/time.Minute))
	case d < 10*time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%dh", int64(d/time.Hour))
}

// Seconds converts fractional seconds back into a duration
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
