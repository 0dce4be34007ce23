package cognitive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubscriptionTokenSourceCachesToken(t *testing.T) {
	issued := atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "key-1" {
			t.Fatalf("unexpected subscription key header: %q", got)
		}
		n := issued.Add(1)
		_, _ = w.Write([]byte("token-" + string(rune('0'+n))))
	}))
	defer srv.Close()

	source, err := NewSubscriptionTokenSource("key-1", WithTokenEndpoint(srv.URL), WithTokenHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("expected token source to be created, got %v", err)
	}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	source.now = func() time.Time { return now }

	first, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("expected token, got %v", err)
	}
	second, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("expected token, got %v", err)
	}
	if first != "token-1" || second != "token-1" {
		t.Fatalf("expected cached token-1 twice, got %q and %q", first, second)
	}

	now = now.Add(10 * time.Minute)
	third, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("expected token, got %v", err)
	}
	if third != "token-2" {
		t.Fatalf("expected refreshed token-2, got %q", third)
	}
	if got := issued.Load(); got != 2 {
		t.Fatalf("expected 2 token requests, got %d", got)
	}
}

func TestSubscriptionTokenSourceErrors(t *testing.T) {
	if _, err := NewSubscriptionTokenSource(""); err == nil {
		t.Fatalf("expected missing key error")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	source, err := NewSubscriptionTokenSource("key", WithTokenEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("expected token source to be created, got %v", err)
	}
	if _, err := source.Token(context.Background()); err == nil {
		t.Fatalf("expected error for forbidden token request")
	}
}

func TestStaticToken(t *testing.T) {
	if token, err := StaticToken("abc").Token(context.Background()); err != nil || token != "abc" {
		t.Fatalf("expected abc, got %q (%v)", token, err)
	}
	if _, err := StaticToken("").Token(context.Background()); err == nil {
		t.Fatalf("expected error for empty token")
	}
}
