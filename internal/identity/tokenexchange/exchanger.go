// Package tokenexchange trades a counsellor's access token for a partner-scoped
// token at the identity provider (RFC 8693) and caches the result until it expires.
package tokenexchange

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"youthsessions/internal/platform/metrics"
	dErrors "youthsessions/pkg/domain-errors"
	platformsync "youthsessions/pkg/platform/sync"
)

const (
	grantTypeTokenExchange = "urn:ietf:params:oauth:grant-type:token-exchange"
	tokenTypeAccessToken   = "urn:ietf:params:oauth:token-type:access_token"
	tokenPath              = "/protocol/openid-connect/token"

	// Cached tokens are treated as expired this long before their exp.
	defaultLeeway = 30 * time.Second
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// Exchanger performs token exchange against the identity provider.
type Exchanger struct {
	endpoint     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	clock        clockwork.Clock
	leeway       time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics

	mu    sync.Mutex
	cache map[string]cachedToken

	// inflight keeps concurrent requests of one counsellor to a single IdP call.
	inflight *platformsync.ShardedMutex
}

type Option func(*Exchanger)

func WithHTTPClient(c *http.Client) Option {
	return func(e *Exchanger) {
		e.httpClient = c
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(e *Exchanger) {
		e.clock = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Exchanger) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Exchanger) {
		e.metrics = m
	}
}

// New builds an Exchanger for the realm at issuerURL.
func New(issuerURL, clientID, clientSecret string, timeout time.Duration, opts ...Option) (*Exchanger, error) {
	if issuerURL == "" {
		return nil, fmt.Errorf("issuer url is required")
	}
	if clientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	e := &Exchanger{
		endpoint:     strings.TrimRight(issuerURL, "/") + tokenPath,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		clock:        clockwork.NewRealClock(),
		leeway:       defaultLeeway,
		logger:       slog.Default(),
		cache:        make(map[string]cachedToken),
		inflight:     platformsync.NewShardedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Exchange returns a partner-scoped token for subjectToken, from cache when still valid.
func (e *Exchanger) Exchange(ctx context.Context, subjectToken string) (string, error) {
	if subjectToken == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "missing access token")
	}
	key := cacheKey(subjectToken)
	if token, ok := e.lookup(key, e.clock.Now()); ok {
		e.metrics.IncrementTokenExchange("cache_hit")
		return token, nil
	}

	e.inflight.Lock(key)
	defer e.inflight.Unlock(key)

	now := e.clock.Now()
	if token, ok := e.lookup(key, now); ok {
		e.metrics.IncrementTokenExchange("cache_hit")
		return token, nil
	}

	resp, err := e.request(ctx, subjectToken)
	if err != nil {
		outcome := "unavailable"
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			outcome = "refused"
		}
		e.metrics.IncrementTokenExchange(outcome)
		return "", err
	}
	e.metrics.IncrementTokenExchange("exchanged")

	if expiresAt, ok := expiry(resp, now); ok {
		e.store(key, cachedToken{token: resp.AccessToken, expiresAt: expiresAt.Add(-e.leeway)}, now)
	}
	e.logger.InfoContext(ctx, "token exchange succeeded", "expires_in", resp.ExpiresIn)
	return resp.AccessToken, nil
}

func (e *Exchanger) request(ctx context.Context, subjectToken string) (*tokenResponse, error) {
	form := url.Values{
		"grant_type":         {grantTypeTokenExchange},
		"subject_token":      {subjectToken},
		"subject_token_type": {tokenTypeAccessToken},
		"client_id":          {e.clientID},
		"client_secret":      {e.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build token exchange request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.ErrorContext(ctx, "token exchange failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "token exchange unavailable")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "read token exchange response")
	}

	switch {
	case res.StatusCode >= http.StatusInternalServerError:
		e.logger.ErrorContext(ctx, "token exchange failed", "status", res.StatusCode)
		return nil, dErrors.New(dErrors.CodeUpstreamUnavailable, "token exchange unavailable")
	case res.StatusCode >= http.StatusBadRequest:
		e.logger.WarnContext(ctx, "token exchange refused", "status", res.StatusCode)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token_expired")
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "decode token exchange response")
	}
	if tr.AccessToken == "" {
		return nil, dErrors.New(dErrors.CodeUpstreamUnavailable, "token exchange returned no access token")
	}
	return &tr, nil
}

// expiry prefers the token's own exp claim and falls back to expires_in.
// Partner tokens are not verified here; the identity provider is trusted.
func expiry(tr *tokenResponse, now time.Time) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time, true
	}
	if tr.ExpiresIn > 0 {
		return now.Add(time.Duration(tr.ExpiresIn) * time.Second), true
	}
	return time.Time{}, false
}

func (e *Exchanger) lookup(key string, now time.Time) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.cache[key]
	if !ok {
		return "", false
	}
	if !now.Before(entry.expiresAt) {
		delete(e.cache, key)
		return "", false
	}
	return entry.token, true
}

func (e *Exchanger) store(key string, entry cachedToken, now time.Time) {
	if !now.Before(entry.expiresAt) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, v := range e.cache {
		if !now.Before(v.expiresAt) {
			delete(e.cache, k)
		}
	}
	e.cache[key] = entry
}

func cacheKey(subjectToken string) string {
	sum := sha256.Sum256([]byte(subjectToken))
	return hex.EncodeToString(sum[:])
}
