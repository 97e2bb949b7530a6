package ratelimit

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrLimitExceeded is returned by Use when a provider or the total budget is
// exhausted for the current window.
var ErrLimitExceeded = errors.New("ai rate limit exceeded")

const resetWindow = 24 * time.Hour

// AIRateLimiter counts AI requests per provider and in total over a daily
// window. A limit of 0 means unlimited.
type AIRateLimiter struct {
	mu        sync.Mutex
	limits    map[string]int
	counts    map[string]int
	total     int
	maxTotal  int
	resetTime time.Time
	now       func() time.Time
	log       *slog.Logger
}

// NewAIRateLimiter creates a limiter with per-provider limits and a total cap.
func NewAIRateLimiter(limits map[string]int, maxTotal int, log *slog.Logger) *AIRateLimiter {
	if log == nil {
		log = slog.Default()
	}
	l := make(map[string]int, len(limits))
	for k, v := range limits {
		l[k] = v
	}
	return &AIRateLimiter{
		limits:    l,
		counts:    make(map[string]int),
		maxTotal:  maxTotal,
		now:       time.Now,
		resetTime: time.Now().Add(resetWindow), // Reset daily
		log:       log,
	}
}

// CanUse checks if we can make a request to provider.
func (rl *AIRateLimiter) CanUse(provider string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()
	return rl.allowedLocked(provider) == nil
}

// Use records one request to provider, or fails without counting it.
func (rl *AIRateLimiter) Use(provider string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()
	if err := rl.allowedLocked(provider); err != nil {
		return err
	}

	rl.counts[provider]++
	rl.total++

	rl.log.Debug("📊 AI usage", "provider", provider, "used", rl.counts[provider], "limit", rl.limits[provider], "total", rl.total, "total_limit", rl.maxTotal)
	return nil
}

func (rl *AIRateLimiter) allowedLocked(provider string) error {
	if max := rl.limits[provider]; max > 0 && rl.counts[provider] >= max {
		return fmt.Errorf("%s: %w (%d/%d)", provider, ErrLimitExceeded, rl.counts[provider], max)
	}
	if rl.maxTotal > 0 && rl.total >= rl.maxTotal {
		return fmt.Errorf("total: %w (%d/%d)", ErrLimitExceeded, rl.total, rl.maxTotal)
	}
	return nil
}

// GetStats returns current rate limiter statistics
func (rl *AIRateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":  rl.total,
		"total_limit": rl.maxTotal,
		"reset_time":  rl.resetTime.Format(time.RFC3339),
	}
	for provider, max := range rl.limits {
		stats[provider+"_used"] = rl.counts[provider]
		stats[provider+"_limit"] = max
	}
	return stats
}

// checkReset resets counters if reset time has passed
func (rl *AIRateLimiter) checkReset() {
	now := rl.now()
	if now.After(rl.resetTime) {
		rl.log.Info("🔄 Resetting AI rate limiter counters", "total_used", rl.total)
		rl.counts = make(map[string]int)
		rl.total = 0
		rl.resetTime = now.Add(resetWindow)
	}
}
