package interceptors

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// idleLimiterTTL is how long an unused per-client limiter is kept.
const idleLimiterTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client for a set of methods.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	methods map[string]bool

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter limits each client to rps requests per second with the
// given burst on methods. A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int, methods map[string]bool) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		methods: methods,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

// Unary returns the interceptor. Clients are keyed by user id when
// authenticated and by client IP otherwise.
func (l *RateLimiter) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if l.limit <= 0 || !l.methods[info.FullMethod] {
			return handler(ctx, req)
		}
		key := "ip:" + ClientIP(ctx)
		if userID, ok := GetUserID(ctx); ok {
			key = "user:" + userID
		}
		if !l.allow(key) {
			return nil, status.Error(codes.ResourceExhausted, "too many requests")
		}
		return handler(ctx, req)
	}
}

func (l *RateLimiter) allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, c := range l.clients {
		if now.Sub(c.lastSeen) > idleLimiterTTL {
			delete(l.clients, k)
		}
	}
	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}
