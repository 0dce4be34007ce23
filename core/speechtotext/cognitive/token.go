package cognitive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultTokenEndpoint = "https://api.cognitive.microsoft.com/sts/v1.0/issueToken"

	// Issued tokens live for ten minutes; refresh a minute early.
	tokenLifetime = 9 * time.Minute
)

// TokenSource provides the bearer token sent with recognition requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a pre-issued token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("empty static token")
	}
	return string(t), nil
}

// SubscriptionTokenSource exchanges a subscription key for short lived
// access tokens and caches them until shortly before they expire.
type SubscriptionTokenSource struct {
	endpoint        string
	subscriptionKey string
	httpClient      *http.Client
	now             func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

type TokenSourceOption func(*SubscriptionTokenSource)

func WithTokenEndpoint(endpoint string) TokenSourceOption {
	return func(s *SubscriptionTokenSource) {
		if endpoint != "" {
			s.endpoint = endpoint
		}
	}
}

func WithTokenHTTPClient(client *http.Client) TokenSourceOption {
	return func(s *SubscriptionTokenSource) {
		if client != nil {
			s.httpClient = client
		}
	}
}

func NewSubscriptionTokenSource(subscriptionKey string, opts ...TokenSourceOption) (*SubscriptionTokenSource, error) {
	if subscriptionKey == "" {
		return nil, errors.New("subscription key is required")
	}

	source := &SubscriptionTokenSource{
		endpoint:        DefaultTokenEndpoint,
		subscriptionKey: subscriptionKey,
		httpClient:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(source)
	}

	return source, nil
}

func (s *SubscriptionTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expiresAt) {
		return s.token, nil
	}

	token, err := s.issue(ctx)
	if err != nil {
		return "", err
	}

	s.token = token
	s.expiresAt = s.now().Add(tokenLifetime)
	return token, nil
}

func (s *SubscriptionTokenSource) issue(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "issue access token")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, http.NoBody)
	if err != nil {
		return "", recordError(span, fmt.Errorf("error creating token request: %w", err))
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.subscriptionKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", recordError(span, fmt.Errorf("error requesting token: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", recordError(span, fmt.Errorf("error reading token response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", recordError(span, fmt.Errorf("non-OK HTTP status from token endpoint: %s", resp.Status))
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", recordError(span, errors.New("token endpoint returned an empty token"))
	}
	return token, nil
}
