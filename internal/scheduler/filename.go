package scheduler

import (
	"strings"
	"time"
)

// renderFileName substitutes {date:yyyyMMdd}, {time:HHmmss}, and the
// un-formatted {date}/{time} (same values) in pattern against at, an
// execution's UTC start time (§6.5).
func renderFileName(pattern string, at time.Time) string {
	at = at.UTC()
	replacer := strings.NewReplacer(
		"{date:yyyyMMdd}", at.Format("20060102"),
		"{time:HHmmss}", at.Format("150405"),
		"{date}", at.Format("20060102"),
		"{time}", at.Format("150405"),
	)
	return replacer.Replace(pattern)
}
