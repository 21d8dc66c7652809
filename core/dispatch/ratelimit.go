package dispatch

import "time"

const limiterSweepSize = 1024

// rateLimiter enforces a minimum interval between handled updates of the
// same chat. It is owned by the poll goroutine and needs no locking.
type rateLimiter struct {
	interval time.Duration
	lastSeen map[string]time.Time
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval, lastSeen: make(map[string]time.Time)}
}

// Allow records chatID at now unless its previous update is too recent.
func (l *rateLimiter) Allow(chatID string, now time.Time) bool {
	if l.interval <= 0 {
		return true
	}
	if last, ok := l.lastSeen[chatID]; ok && now.Sub(last) < l.interval {
		return false
	}
	if len(l.lastSeen) >= limiterSweepSize {
		for id, seen := range l.lastSeen {
			if now.Sub(seen) >= l.interval {
				delete(l.lastSeen, id)
			}
		}
	}
	l.lastSeen[chatID] = now
	return true
}
