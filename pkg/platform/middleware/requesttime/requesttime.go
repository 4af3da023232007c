// Package requesttime pins "now" for the lifetime of a request so that status
// derivation and overlay timestamps within one request agree.
package requesttime

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

type contextKeyRequestTime struct{}

// Middleware reads clock once per request and stores the instant in the context.
// A nil clock uses the wall clock.
func Middleware(clock clockwork.Clock) func(http.Handler) http.Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithTime(r.Context(), clock.Now())))
		})
	}
}

// Now returns the instant pinned in ctx, or the wall clock outside a request.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyRequestTime{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins t in ctx. Workers use it to share one instant across a job.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyRequestTime{}, t)
}
