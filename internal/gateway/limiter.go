package gateway

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiter hands out one token bucket per caller key. Idle buckets expire
// from the cache.
type limiter struct {
	buckets *cache.Cache
	limit   rate.Limit
	burst   int
}

// newLimiter allows perMinute requests per key. perMinute <= 0 disables
// limiting.
func newLimiter(perMinute int) *limiter {
	l := &limiter{buckets: cache.New(10*time.Minute, 5*time.Minute)}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = perMinute
	} else {
		l.limit = rate.Inf
	}
	return l
}

func (l *limiter) allow(key string) bool {
	if l.limit == rate.Inf {
		return true
	}
	if x, found := l.buckets.Get(key); found {
		l.buckets.Set(key, x, cache.DefaultExpiration)
		return x.(*rate.Limiter).Allow()
	}
	fresh := rate.NewLimiter(l.limit, l.burst)
	if err := l.buckets.Add(key, fresh, cache.DefaultExpiration); err != nil {
		// Another request created the bucket first.
		if x, found := l.buckets.Get(key); found {
			return x.(*rate.Limiter).Allow()
		}
	}
	return fresh.Allow()
}
