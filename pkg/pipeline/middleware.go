package pipeline

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/toyz/axonroute/pkg/axon"
)

const (
	// RequestIDHeader carries the request id in both directions
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the context key holding the request id
	RequestIDKey = "axon.request_id"
)

// Recovery turns a panic in the rest of the chain into a 500 error
func Recovery(logger *zap.Logger) axon.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recovered",
						zap.Any("panic", r),
						zap.String("method", ctx.Method()),
						zap.String("path", ctx.Path()),
						zap.Stack("stack"))
					err = axon.NewHTTPError(http.StatusInternalServerError,
						http.StatusText(http.StatusInternalServerError), fmt.Errorf("panic: %v", r))
				}
			}()
			return next(ctx)
		}
	}
}

// RequestID propagates the incoming X-Request-ID or assigns a new one
func RequestID() axon.MiddlewareFunc {
	return func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			id := ctx.Request().Header(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			ctx.Set(RequestIDKey, id)
			ctx.Response().SetHeader(RequestIDHeader, id)
			return next(ctx)
		}
	}
}

// RequestIDOf returns the id assigned by RequestID, or ""
func RequestIDOf(ctx axon.RequestContext) string {
	id, _ := ctx.Get(RequestIDKey).(string)
	return id
}

// RequestLogger logs one line per request once the chain returned
func RequestLogger(logger *zap.Logger) axon.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status()
			level := zapcore.InfoLevel
			if err != nil {
				status = axon.ErrorStatus(err)
			}
			switch {
			case status >= http.StatusInternalServerError:
				level = zapcore.ErrorLevel
			case status >= http.StatusBadRequest:
				level = zapcore.WarnLevel
			}

			fields := []zap.Field{
				zap.String("method", ctx.Method()),
				zap.String("path", ctx.Path()),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_ip", ctx.RealIP()),
			}
			if route := routeOf(ctx); route != "" {
				fields = append(fields, zap.String("route", route))
			}
			if id := RequestIDOf(ctx); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			if ce := logger.Check(level, "request"); ce != nil {
				ce.Write(fields...)
			}
			return err
		}
	}
}

// RateLimitConfig configures the RateLimit middleware
type RateLimitConfig struct {
	Rate            float64                              // requests per second
	Burst           int                                  // max burst
	KeyFunc         func(ctx axon.RequestContext) string // default: client IP
	OnLimit         func(ctx axon.RequestContext) error  // default: 429 error
	CleanupInterval time.Duration                        // how often idle limiters are pruned (default: 1m)
	MaxIdle         time.Duration                        // limiters idle longer than this are removed (default: 5m)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit limits requests per key with a token bucket per key
func RateLimit(cfg RateLimitConfig) axon.MiddlewareFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(ctx axon.RequestContext) string {
			return ctx.RealIP()
		}
	}
	if cfg.OnLimit == nil {
		cfg.OnLimit = func(axon.RequestContext) error {
			return axon.NewHTTPError(http.StatusTooManyRequests)
		}
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 5 * time.Minute
	}
	retryAfter := "1"
	if cfg.Rate > 0 && cfg.Rate < 1 {
		retryAfter = strconv.FormatFloat(1/cfg.Rate, 'f', 0, 64)
	}

	var (
		mu          sync.Mutex
		limiters    = make(map[string]*limiterEntry)
		lastCleanup time.Time
	)

	return func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			key := cfg.KeyFunc(ctx)

			mu.Lock()
			now := time.Now()
			if now.Sub(lastCleanup) >= cleanupInterval {
				for k, e := range limiters {
					if now.Sub(e.lastSeen) > maxIdle {
						delete(limiters, k)
					}
				}
				lastCleanup = now
			}
			entry, ok := limiters[key]
			if !ok {
				entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)}
				limiters[key] = entry
			}
			entry.lastSeen = now
			mu.Unlock()

			if !entry.limiter.Allow() {
				ctx.Response().SetHeader("Retry-After", retryAfter)
				return cfg.OnLimit(ctx)
			}
			return next(ctx)
		}
	}
}

func routeOf(ctx axon.RequestContext) string {
	route, _ := ctx.Get(axon.RouteKey).(string)
	return route
}
