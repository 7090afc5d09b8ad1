package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/user/record-api/internal/adapter/ratelimit"
)

// Operation classes for rate limiting.
const (
	ClassRead  = "read"
	ClassWrite = "write"
	ClassAuth  = "auth"
)

// RateLimit is a middleware factory enforcing a fixed-window limit for one
// operation class. The caller identity is the authenticated user when the
// auth middleware ran earlier in the chain, the remote address otherwise.
// Every response carries the standard limit headers; rejections get 429 with
// seconds-until-reset.
func RateLimit(limiter *ratelimit.Limiter, logger *slog.Logger, class string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := callerIdentity(r)

			res := limiter.Limit(r.Context(), identifier, class, limit, window)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(res.ResetSeconds))

			if !res.Allowed {
				logger.Warn("rate limit exceeded",
					"identifier", identifier,
					"class", class,
					"path", r.URL.Path,
				)
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ByMethod picks the read or write class from the HTTP method and applies
// the matching limit.
func ByMethod(limiter *ratelimit.Limiter, logger *slog.Logger, readLimit, writeLimit int, window time.Duration) func(http.Handler) http.Handler {
	read := RateLimit(limiter, logger, ClassRead, readLimit, window)
	write := RateLimit(limiter, logger, ClassWrite, writeLimit, window)

	return func(next http.Handler) http.Handler {
		readNext := read(next)
		writeNext := write(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead:
				readNext.ServeHTTP(w, r)
			default:
				writeNext.ServeHTTP(w, r)
			}
		})
	}
}

func callerIdentity(r *http.Request) string {
	if tc, ok := TenantFrom(r.Context()); ok {
		return "user:" + strconv.FormatInt(tc.SiteID, 10) + ":" + strconv.FormatInt(tc.UserID, 10)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
