package middle

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vendorpay/vendorpay/infra/response"
)

// RateLimiter tracks per-client request counts over a fixed window, with a
// separate budget for the processor webhook endpoint. Stripe retries failed
// deliveries in bursts, so the webhook budget runs higher than the merchant
// API budget.
type RateLimiter struct {
	visitors    map[string]*visitor
	mu          sync.Mutex
	apiRate     int
	webhookRate int
	window      time.Duration
}

type visitor struct {
	count     int
	lastReset time.Time
}

// NewRateLimiter creates a rate limiter with the given per-minute budgets.
func NewRateLimiter(apiPerMinute, webhookPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		visitors:    make(map[string]*visitor),
		apiRate:     apiPerMinute,
		webhookRate: webhookPerMinute,
		window:      time.Minute,
	}

	go rl.cleanup()

	return rl
}

// Allow reports whether a merchant API request from clientIP fits the budget.
func (rl *RateLimiter) Allow(clientIP string) bool {
	return rl.allow("api|"+clientIP, rl.apiRate)
}

// AllowWebhook reports whether a webhook delivery from clientIP fits the
// webhook budget. Webhook traffic counts against its own bucket so processor
// retries cannot starve the merchant API or vice versa.
func (rl *RateLimiter) AllowWebhook(clientIP string) bool {
	return rl.allow("webhook|"+clientIP, rl.webhookRate)
}

func (rl *RateLimiter) allow(key string, rate int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, exists := rl.visitors[key]

	if !exists || now.Sub(v.lastReset) > rl.window {
		rl.visitors[key] = &visitor{
			count:     1,
			lastReset: now,
		}
		return true
	}

	if v.count >= rate {
		return false
	}

	v.count++
	return true
}

// cleanup removes buckets idle longer than two windows.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, v := range rl.visitors {
			if now.Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimitMiddleware enforces the limiter, routing webhook deliveries to
// their own budget.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := GetClientIP(r)

			var allowed bool
			if strings.HasPrefix(r.URL.Path, "/webhooks") {
				allowed = rl.AllowWebhook(clientIP)
			} else {
				allowed = rl.Allow(clientIP)
			}
			if !allowed {
				response.Error(w, http.StatusTooManyRequests, "Rate limit exceeded", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetClientIP extracts the client IP, preferring proxy headers.
func GetClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// First hop in a comma-separated chain
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	remoteAddr := r.RemoteAddr
	if idx := strings.LastIndex(remoteAddr, ":"); idx != -1 {
		ip := remoteAddr[:idx]
		if ip == "[::1]" {
			return "127.0.0.1"
		}
		return ip
	}

	if remoteAddr == "[::1]" {
		return "127.0.0.1"
	}

	return remoteAddr
}
