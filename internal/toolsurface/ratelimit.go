package toolsurface

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// perToolLimiter enforces a per-tool-name rate limit, adapted from the
// teacher's features/model/middleware/ratelimit.go AIMD limiter: Git-Iris's
// tools are not charged against a shared provider tokens-per-minute budget
// (there's no provider on this side of the call), so this keeps the simple
// token-bucket core of that middleware — one golang.org/x/time/rate.Limiter
// per tool name, created lazily — without the cluster-coordination layer
// the teacher needs for its adaptive provider budget.
type perToolLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// newPerToolLimiter returns a limiter allowing rps calls per second per
// tool name, with the given burst.
func newPerToolLimiter(rps float64, burst int) *perToolLimiter {
	return &perToolLimiter{limiters: map[string]*rate.Limiter{}, rps: rps, burst: burst}
}

func (l *perToolLimiter) wait(ctx context.Context, tool string) error {
	l.mu.Lock()
	lim, ok := l.limiters[tool]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.limiters[tool] = lim
	}
	l.mu.Unlock()
	return lim.Wait(ctx)
}
