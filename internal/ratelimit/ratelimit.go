package ratelimit

import (
	"sync"
	"time"
)

// WriteLimiter enforces sliding-window limits on property mutations
type WriteLimiter struct {
	requestsPerMinute int
	requestsPerHour   int
	enabled           bool

	// Request tracking
	minuteWindow []time.Time
	hourWindow   []time.Time
	mu           sync.Mutex
}

// NewWriteLimiter creates a new limiter with the given limits
func NewWriteLimiter(requestsPerMinute, requestsPerHour int, enabled bool) *WriteLimiter {
	return &WriteLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		enabled:           enabled,
		minuteWindow:      make([]time.Time, 0),
		hourWindow:        make([]time.Time, 0),
	}
}

// Allow checks if a mutation is allowed based on the configured limits
// Returns true if allowed, false if the limit is exceeded
func (wl *WriteLimiter) Allow() bool {
	if !wl.enabled {
		return true
	}

	wl.mu.Lock()
	defer wl.mu.Unlock()

	now := time.Now()
	wl.cleanup(now)

	if wl.requestsPerMinute > 0 && len(wl.minuteWindow) >= wl.requestsPerMinute {
		return false
	}
	if wl.requestsPerHour > 0 && len(wl.hourWindow) >= wl.requestsPerHour {
		return false
	}

	wl.minuteWindow = append(wl.minuteWindow, now)
	wl.hourWindow = append(wl.hourWindow, now)

	return true
}

// cleanup removes expired entries from the time windows
func (wl *WriteLimiter) cleanup(now time.Time) {
	wl.minuteWindow = filterTimes(wl.minuteWindow, now.Add(-1*time.Minute))
	wl.hourWindow = filterTimes(wl.hourWindow, now.Add(-1*time.Hour))
}

// filterTimes keeps only times after the cutoff
func filterTimes(times []time.Time, cutoff time.Time) []time.Time {
	result := make([]time.Time, 0, len(times))
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}

// Stats contains limiter statistics
type Stats struct {
	Enabled             bool `json:"enabled"`
	RequestsLastMinute  int  `json:"requests_last_minute"`
	RequestsLastHour    int  `json:"requests_last_hour"`
	LimitPerMinute      int  `json:"limit_per_minute"`
	LimitPerHour        int  `json:"limit_per_hour"`
	RemainingThisMinute int  `json:"remaining_this_minute"`
	RemainingThisHour   int  `json:"remaining_this_hour"`
}

// GetStats returns current limiter statistics
func (wl *WriteLimiter) GetStats() Stats {
	if !wl.enabled {
		return Stats{Enabled: false}
	}

	wl.mu.Lock()
	defer wl.mu.Unlock()

	wl.cleanup(time.Now())

	return Stats{
		Enabled:             true,
		RequestsLastMinute:  len(wl.minuteWindow),
		RequestsLastHour:    len(wl.hourWindow),
		LimitPerMinute:      wl.requestsPerMinute,
		LimitPerHour:        wl.requestsPerHour,
		RemainingThisMinute: max(0, wl.requestsPerMinute-len(wl.minuteWindow)),
		RemainingThisHour:   max(0, wl.requestsPerHour-len(wl.hourWindow)),
	}
}

// Reset clears all tracked requests (useful for testing)
func (wl *WriteLimiter) Reset() {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	wl.minuteWindow = make([]time.Time, 0)
	wl.hourWindow = make([]time.Time, 0)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
