package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// ownerLimiter keeps one token bucket per owner for the analysis endpoints.
type ownerLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

// newOwnerLimiter allows perMinute requests per owner. A non-positive
// perMinute disables limiting and returns nil.
func newOwnerLimiter(perMinute int) *ownerLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &ownerLimiter{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (l *ownerLimiter) allow(owner string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[owner]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[owner] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// middleware must run after requireOwner.
func (l *ownerLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l == nil {
			return next
		}
		return func(c echo.Context) error {
			if !l.allow(ownerFrom(c)) {
				return failure(c, http.StatusTooManyRequests, "Too many analysis requests, try again later", nil)
			}
			return next(c)
		}
	}
}
