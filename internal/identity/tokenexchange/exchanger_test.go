package tokenexchange

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	dErrors "youthsessions/pkg/domain-errors"
	"youthsessions/pkg/testutil"
)

type ExchangerSuite struct {
	suite.Suite
	server   *httptest.Server
	clock    *clockwork.FakeClock
	calls    atomic.Int32
	status   int
	respond  func() string
	lastForm map[string]string
}

func TestExchangerSuite(t *testing.T) {
	suite.Run(t, new(ExchangerSuite))
}

func (s *ExchangerSuite) SetupTest() {
	s.clock = clockwork.NewFakeClockAt(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC))
	s.calls.Store(0)
	s.status = http.StatusOK
	s.respond = func() string {
		return fmt.Sprintf(`{"access_token":%q,"expires_in":300}`, s.signed(s.clock.Now().Add(5*time.Minute)))
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		s.Equal("/realms/cej"+tokenPath, r.URL.Path)
		s.Equal("application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		s.NoError(r.ParseForm())
		s.lastForm = map[string]string{}
		for k := range r.PostForm {
			s.lastForm[k] = r.PostForm.Get(k)
		}
		w.WriteHeader(s.status)
		if s.status == http.StatusOK {
			_, _ = w.Write([]byte(s.respond()))
		}
	}))
}

func (s *ExchangerSuite) TearDownTest() {
	s.server.Close()
}

func (s *ExchangerSuite) signed(exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "counsellor-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	out, err := token.SignedString([]byte("idp-secret"))
	s.Require().NoError(err)
	return out
}

func (s *ExchangerSuite) exchanger() *Exchanger {
	e, err := New(s.server.URL+"/realms/cej/", "backend", "shh", time.Second, WithClock(s.clock))
	s.Require().NoError(err)
	return e
}

func (s *ExchangerSuite) TestNewValidates() {
	_, err := New("", "backend", "shh", time.Second)
	s.Error(err)
	_, err = New(s.server.URL, "", "shh", time.Second)
	s.Error(err)
}

func (s *ExchangerSuite) TestSendsTokenExchangeGrant() {
	token, err := s.exchanger().Exchange(context.Background(), "counsellor-token")
	s.Require().NoError(err)
	s.NotEmpty(token)

	s.Equal(grantTypeTokenExchange, s.lastForm["grant_type"])
	s.Equal("counsellor-token", s.lastForm["subject_token"])
	s.Equal(tokenTypeAccessToken, s.lastForm["subject_token_type"])
	s.Equal("backend", s.lastForm["client_id"])
	s.Equal("shh", s.lastForm["client_secret"])
}

func (s *ExchangerSuite) TestCachesUntilExpiry() {
	e := s.exchanger()
	ctx := context.Background()

	first, err := e.Exchange(ctx, "counsellor-token")
	s.Require().NoError(err)
	second, err := e.Exchange(ctx, "counsellor-token")
	s.Require().NoError(err)
	s.Equal(first, second)
	s.Equal(int32(1), s.calls.Load())

	s.Run("other subjects are exchanged separately", func() {
		_, err := e.Exchange(ctx, "another-token")
		s.Require().NoError(err)
		s.Equal(int32(2), s.calls.Load())
	})

	s.Run("expired entries are exchanged again", func() {
		s.clock.Advance(5*time.Minute - defaultLeeway)
		_, err := e.Exchange(ctx, "counsellor-token")
		s.Require().NoError(err)
		s.Equal(int32(3), s.calls.Load())
	})
}

func (s *ExchangerSuite) TestConcurrentRequestsShareOneExchange() {
	e := s.exchanger()
	result := testutil.RunConcurrent(20, func(int) error {
		_, err := e.Exchange(context.Background(), "counsellor-token")
		return err
	})
	s.Equal(int32(20), result.Successes)
	s.Equal(int32(1), s.calls.Load())
}

func (s *ExchangerSuite) TestFallsBackToExpiresInForOpaqueTokens() {
	s.respond = func() string { return `{"access_token":"opaque","expires_in":120}` }
	e := s.exchanger()
	ctx := context.Background()

	for range 2 {
		token, err := e.Exchange(ctx, "counsellor-token")
		s.Require().NoError(err)
		s.Equal("opaque", token)
	}
	s.Equal(int32(1), s.calls.Load())

	s.clock.Advance(2 * time.Minute)
	_, err := e.Exchange(ctx, "counsellor-token")
	s.Require().NoError(err)
	s.Equal(int32(2), s.calls.Load())
}

func (s *ExchangerSuite) TestNoExpiryIsNotCached() {
	s.respond = func() string { return `{"access_token":"opaque"}` }
	e := s.exchanger()
	for range 2 {
		_, err := e.Exchange(context.Background(), "counsellor-token")
		s.Require().NoError(err)
	}
	s.Equal(int32(2), s.calls.Load())
}

func (s *ExchangerSuite) TestFailures() {
	cases := []struct {
		name   string
		status int
		code   dErrors.Code
	}{
		{"refused token", http.StatusUnauthorized, dErrors.CodeUnauthorized},
		{"bad request", http.StatusBadRequest, dErrors.CodeUnauthorized},
		{"provider outage", http.StatusServiceUnavailable, dErrors.CodeUpstreamUnavailable},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.status = tc.status
			_, err := s.exchanger().Exchange(context.Background(), "counsellor-token")
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tc.code), err.Error())
		})
	}

	s.Run("missing subject token", func() {
		_, err := s.exchanger().Exchange(context.Background(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unreachable provider", func() {
		e, err := New("http://127.0.0.1:1", "backend", "shh", 200*time.Millisecond)
		s.Require().NoError(err)
		_, err = e.Exchange(context.Background(), "counsellor-token")
		s.True(dErrors.HasCode(err, dErrors.CodeUpstreamUnavailable))
	})
}
