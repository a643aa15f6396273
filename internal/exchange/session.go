// Package exchange hosts the broker session and the market data adapter.
package exchange

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"pairsbot-go/internal/config"
)

const tokenPath = "/connect/token"

// Session owns the shared HTTP client for every broker call. Requests are rate limited and carry a
// bearer token obtained through the OAuth2 password grant; the token is re-acquired when it expires.
type Session struct {
	baseURL string
	client  *http.Client
	tokens  oauth2.TokenSource
}

// limitedTransport throttles outbound requests across all pairs.
type limitedTransport struct {
	limiter *rate.Limiter
	base    http.RoundTripper
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// passwordSource performs a fresh password grant each time the cached token runs out.
type passwordSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (p *passwordSource) Token() (*oauth2.Token, error) {
	tok, err := p.conf.PasswordCredentialsToken(p.ctx, p.username, p.password)
	if err != nil {
		authErr := &AuthError{Err: err}
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) && retrieve.Response != nil {
			authErr.Status = retrieve.Response.StatusCode
		}
		return nil, authErr
	}
	return tok, nil
}

// NewSession wires credentials and broker limits into an authenticated client. No network call is made
// until Authenticate or the first request.
func NewSession(creds *config.Credentials, broker config.Broker) *Session {
	timeout := broker.HTTPTimeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if broker.RequestsPerSecond > 0 {
		limit = rate.Limit(broker.RequestsPerSecond)
	}
	burst := broker.Burst
	if burst <= 0 {
		burst = 1
	}

	base := &http.Client{
		Transport: &limitedTransport{limiter: rate.NewLimiter(limit, burst), base: http.DefaultTransport},
		Timeout:   timeout,
	}
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  strings.TrimSuffix(creds.AuthURL, "/") + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	tokens := oauth2.ReuseTokenSource(nil, &passwordSource{
		ctx:      tokenCtx,
		conf:     conf,
		username: creds.Username,
		password: creds.Password,
	})

	return &Session{
		baseURL: strings.TrimSuffix(creds.BaseURL, "/"),
		tokens:  tokens,
		client: &http.Client{
			Transport: &oauth2.Transport{Source: tokens, Base: base.Transport},
			Timeout:   timeout,
		},
	}
}

// Authenticate acquires the first token so a bad login fails fast at startup.
func (s *Session) Authenticate() error {
	_, err := s.tokens.Token()
	if err == nil {
		return nil
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return &AuthError{Err: err}
}

// Client returns the shared, authenticated HTTP client.
func (s *Session) Client() *http.Client { return s.client }

// URL joins path onto the broker base URL.
func (s *Session) URL(path string) string { return s.baseURL + path }
