package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/flowhub/internal/security/auth"
	"github.com/yourorg/flowhub/internal/security/ratelimit"
)

type ClaimsContextKey struct{}

// publicPath reports whether a request path is served without a token
func publicPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics", "/api/login", "/api/signup":
		return true
	}
	return strings.HasPrefix(path, "/ws/")
}

// JWTMiddleware authenticates API requests and stores claims on the context
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Info("rejected token", slog.String("error", err.Error()))
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CORSMiddleware sets cross-origin headers for configured origins and
// answers preflight requests. It must wrap the auth middleware so a browser
// preflight, which never carries a token, is not rejected before it is
// answered.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else if len(allowedOrigins) > 0 {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigins[0])
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// Stricter budget for endpoints that gate account access
const (
	strictMaxRequests = 10
	strictWindow      = time.Minute
)

// strictPath reports whether a path gets the tighter rate limit
func strictPath(path string) bool {
	switch path {
	case "/api/login", "/api/signup", "/api/users/invite":
		return true
	}
	return false
}

// RateLimitMiddleware throttles authenticated callers by user id and
// anonymous callers (login, signup) by remote address. It must run inside
// the JWT middleware so claims are already on the context. Login, signup,
// and invite get a tighter separate budget.
func RateLimitMiddleware(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if claims := GetClaimsFromContext(r.Context()); claims != nil {
				key = claims.UserID
			} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				key = host
			}

			allowed := limiter.Allow(key)
			if allowed && key != "" && strictPath(r.URL.Path) {
				// Per-endpoint bucket: exhausting login must not lock signup.
				allowed = limiter.AllowStrict(r.URL.Path+"|"+key, strictMaxRequests, strictWindow)
			}
			if !allowed {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetClaimsFromContext returns the authenticated claims, if any
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}
