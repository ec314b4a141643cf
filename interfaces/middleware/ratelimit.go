package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"prism-connector/domain/dto"
	"prism-connector/infrastructure/logger"
)

// Counter counts events in fixed windows. The Redis-backed implementation
// shares the window across instances; the local one is per-process.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// LocalCounter is the fallback Counter when Redis is unavailable.
type LocalCounter struct {
	mu      sync.Mutex
	windows map[string]*localWindow
}

type localWindow struct {
	count int64
	reset time.Time
}

func NewLocalCounter() *LocalCounter {
	return &LocalCounter{windows: make(map[string]*localWindow)}
}

func (c *LocalCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	w, ok := c.windows[key]
	if !ok || now.After(w.reset) {
		w = &localWindow{reset: now.Add(window)}
		c.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// RateLimit caps requests per client per minute on the wrapped routes.
// Over-limit requests get 429 with Retry-After. A failing counter fails
// open: publishing with no limit beats not publishing at all.
func RateLimit(counter Counter, perMinute int, name string) gin.HandlerFunc {
	const window = time.Minute
	return func(ctx *gin.Context) {
		if perMinute <= 0 {
			ctx.Next()
			return
		}
		key := fmt.Sprintf("ratelimit:%s:%s", name, ctx.ClientIP())
		count, err := counter.Incr(ctx.Request.Context(), key, window)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Rate limit counter failed; allowing request")
			ctx.Next()
			return
		}
		if count > int64(perMinute) {
			ctx.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, dto.Res{
				ResponseCode:    "429",
				ResponseMessage: "Too many requests",
			})
			return
		}
		ctx.Next()
	}
}
