package http

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robertarktes/course-bookings/internal/auth"
	"github.com/robertarktes/course-bookings/internal/idempotency"
	"github.com/robertarktes/course-bookings/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelhttp "go.opentelemetry.io/otel/propagation"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// Limiter decides whether another request for key fits in rate per period.
type Limiter interface {
	Allow(ctx context.Context, key string, rate int, period time.Duration) (bool, error)
}

func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

// LoggerMiddleware attaches a request-scoped logger and records one log line
// and one request metric per request.
func LoggerMiddleware(logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			entry := logger.WithField("request_id", reqID)
			ctx := observability.ContextWithLogger(r.Context(), entry)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			observability.RequestsTotal.WithLabelValues(route, strconv.Itoa(status), r.Method).Inc()

			entry.WithField("method", r.Method).
				WithField("route", route).
				WithField("status", status).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				Info("request completed")
		})
	}
}

// AuthMiddleware requires a valid bearer access token and stores its principal
// in the request context.
func AuthMiddleware(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeFailure(w, http.StatusUnauthorized, "Unauthenticated", nil)
				return
			}
			p, err := auth.ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeFailure(w, http.StatusUnauthorized, "Unauthenticated", nil)
				return
			}
			ctx := auth.WithPrincipal(r.Context(), p)
			if l := observability.LoggerFromContext(ctx, nil); l != nil {
				ctx = observability.ContextWithLogger(ctx, l.WithField("user_id", p.UserID.String()))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok || p.Role != role {
				writeFailure(w, http.StatusForbidden, "This action is unauthorized", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdempotencyMiddleware rejects malformed Idempotency-Key headers on POST.
// The key is optional; replay happens in the handler.
func IdempotencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		if key := r.Header.Get(IdempotencyKeyHeader); key != "" {
			if err := idempotency.ValidateKey(key); err != nil {
				writeFailure(w, http.StatusBadRequest, "invalid Idempotency-Key", nil)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// IPRateLimitMiddleware applies a fixed window per peer address. It runs
// before authentication so anonymous and rejected requests are counted too.
func IPRateLimitMiddleware(rl Limiter, rate int, logger observability.Logger) func(next http.Handler) http.Handler {
	return rateLimit(rl, logger, func(r *http.Request) (string, int, bool) {
		return "ip:" + clientIP(r), rate, true
	})
}

// UserRateLimitMiddleware applies a fixed window per authenticated user.
func UserRateLimitMiddleware(rl Limiter, rate int, logger observability.Logger) func(next http.Handler) http.Handler {
	return rateLimit(rl, logger, func(r *http.Request) (string, int, bool) {
		p, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			return "", 0, false
		}
		return "user:" + p.UserID.String(), rate, true
	})
}

// A limiter that cannot answer lets the request through.
func rateLimit(rl Limiter, logger observability.Logger, keyFn func(r *http.Request) (string, int, bool)) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, rate, ok := keyFn(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			allowed, err := rl.Allow(r.Context(), key, rate, time.Minute)
			if err != nil {
				observability.LoggerFromContext(r.Context(), logger).WithError(err).Warn("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				observability.RateLimitExceeded.Inc()
				writeFailure(w, http.StatusTooManyRequests, "Too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP keys on the connection's peer address. Forwarding headers are
// client controlled and are ignored.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), otelhttp.HeaderCarrier(r.Header))
		tracer := otel.Tracer("http")
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", ww.Status()))
		if ww.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(ww.Status()))
		}
	})
}
