package services

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// staleAfter is how long an address may sit idle before its bucket is evicted.
const staleAfter = 30 * time.Minute

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands out one token bucket per client address. Tracking
// endpoints are public, so idle buckets are evicted individually instead of
// wholesale to keep hot visitors' burst state intact.
type IPRateLimiter struct {
	ips    map[string]*ipBucket
	mu     sync.Mutex
	r      rate.Limit
	b      int
	logger *slog.Logger
}

func NewIPRateLimiter(r rate.Limit, b int, logger *slog.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		ips:    make(map[string]*ipBucket),
		r:      r,
		b:      b,
		logger: logger,
	}
}

func (i *IPRateLimiter) StartCleanup(interval time.Duration) {
	go func() {
		for {
			time.Sleep(interval)
			i.evictStale()
		}
	}()
}

func (i *IPRateLimiter) evictStale() {
	cutoff := time.Now().Add(-staleAfter)
	i.mu.Lock()
	defer i.mu.Unlock()

	evicted := 0
	for ip, bucket := range i.ips {
		if bucket.lastSeen.Before(cutoff) {
			delete(i.ips, ip)
			evicted++
		}
	}
	if evicted > 0 {
		i.logger.Info("Evicted stale rate limiter buckets", "evicted", evicted, "remaining", len(i.ips))
	}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	bucket, exists := i.ips[ip]
	if !exists {
		bucket = &ipBucket{limiter: rate.NewLimiter(i.r, i.b)}
		i.ips[ip] = bucket
	}
	bucket.lastSeen = time.Now()

	return bucket.limiter
}
