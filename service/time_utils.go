package service

import (
	"time"
)

// MarketResolvesAt returns when a market opened now stops taking bets,
// truncated to whole seconds in UTC
func MarketResolvesAt(now time.Time, duration time.Duration) time.Time {
	return now.UTC().Add(duration).Truncate(time.Second)
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// normalizeLimit applies the default page size and caps oversized requests
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
