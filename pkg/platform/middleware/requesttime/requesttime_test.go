package requesttime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewarePinsClockTime(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC))

	var first, second time.Time
	handler := Middleware(clock)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first = Now(r.Context())
		clock.Advance(time.Hour)
		second = Now(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), first)
	assert.Equal(t, first, second, "one instant per request")
}

func TestMiddlewareDefaultsToWallClock(t *testing.T) {
	var got time.Time
	handler := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Now(r.Context())
	}))

	before := time.Now()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, got.Before(before))
}

func TestNowOutsideRequest(t *testing.T) {
	before := time.Now()
	assert.False(t, Now(context.Background()).Before(before))
}

func TestWithTimeOverrides(t *testing.T) {
	original := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	ctx := WithTime(context.Background(), original)
	assert.Equal(t, original, Now(ctx))
	assert.Equal(t, later, Now(WithTime(ctx, later)))
}
