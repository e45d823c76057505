package graph

import (
	"math"
	"strings"
	"time"
)

// Staleness is the freshness band of a service's last update.
type Staleness string

const (
	StalenessFresh Staleness = "fresh" // updated within FreshDays
	StalenessAging Staleness = "aging"
	StalenessStale Staleness = "stale" // older than StaleDays, or unknown
)

const (
	FreshDays = 31
	StaleDays = 183
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate parses the date formats accepted in metadata.updatedAt.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysSince returns whole days elapsed between updatedAt and now.
// ok is false when the date is missing or unparseable.
func DaysSince(updatedAt string, now time.Time) (days int, ok bool) {
	t, ok := ParseDate(updatedAt)
	if !ok {
		return 0, false
	}
	return int(math.Floor(now.Sub(t).Hours() / 24)), true
}

// StalenessOf classifies updatedAt relative to now. Unknown dates are stale.
func StalenessOf(updatedAt string, now time.Time) Staleness {
	days, ok := DaysSince(updatedAt, now)
	switch {
	case !ok:
		return StalenessStale
	case days <= FreshDays:
		return StalenessFresh
	case days > StaleDays:
		return StalenessStale
	default:
		return StalenessAging
	}
}
