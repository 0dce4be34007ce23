package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrUntrustedServiceURL = errors.New("service url is not trusted")
	ErrInvalidServiceURL   = errors.New("service url must be an absolute http(s) url")
	ErrMissingTarget       = errors.New("notification target is required")
)

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// APIError is a non-2xx answer from the connector.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("connector returned %d: %s", e.StatusCode, e.Body)
}

type Activity struct {
	Type         string              `json:"type"`
	ChannelID    string              `json:"channelId,omitempty"`
	ServiceURL   string              `json:"serviceUrl,omitempty"`
	From         Account             `json:"from"`
	Recipient    Account             `json:"recipient"`
	Conversation ConversationAccount `json:"conversation"`
	Text         string              `json:"text"`
	Locale       string              `json:"locale,omitempty"`
}

type ResourceResponse struct {
	ID string `json:"id"`
}

type conversationParameters struct {
	Bot     Account   `json:"bot"`
	Members []Account `json:"members"`
	IsGroup bool      `json:"isGroup"`
}

type Client struct {
	tokens     TokenSource
	httpClient *http.Client
	locale     string

	trustedMu sync.RWMutex
	trusted   map[string]struct{}
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithLocale(locale string) Option {
	return func(c *Client) { c.locale = locale }
}

// WithTrustedServiceURLs pre-registers service URLs the client may post to.
func WithTrustedServiceURLs(serviceURLs ...string) Option {
	return func(c *Client) {
		for _, serviceURL := range serviceURLs {
			c.TrustServiceURL(serviceURL)
		}
	}
}

// New creates a connector client. A nil token source sends requests
// without authorization, which local emulators accept.
func New(tokens TokenSource, opts ...Option) *Client {
	client := &Client{
		tokens:     tokens,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		locale:     DefaultLocale,
		trusted:    map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) TrustServiceURL(serviceURL string) {
	c.trustedMu.Lock()
	defer c.trustedMu.Unlock()
	c.trusted[normalizeServiceURL(serviceURL)] = struct{}{}
}

func (c *Client) isTrusted(serviceURL string) bool {
	c.trustedMu.RLock()
	defer c.trustedMu.RUnlock()
	_, ok := c.trusted[normalizeServiceURL(serviceURL)]
	return ok
}

// Notify sends text to the target. Targets without a conversation get a
// direct conversation created first; its id is stored on the target.
func (c *Client) Notify(ctx context.Context, target *Target, text string) error {
	if target == nil {
		return ErrMissingTarget
	}

	ctx, span := tracer.Start(ctx, "notify", trace.WithAttributes(
		attribute.String("notification.channel_id", target.ChannelID),
		attribute.String("notification.service_url", target.ServiceURL),
	))
	defer span.End()

	if !target.hasConversation() {
		conversationID, err := c.CreateDirectConversation(ctx, target.ServiceURL, target.Bot, target.User)
		if err != nil {
			return recordError(span, fmt.Errorf("failed to create conversation: %w", err))
		}
		target.ConversationID = conversationID
	}

	activity := Activity{
		Type:         "message",
		ChannelID:    target.ChannelID,
		ServiceURL:   target.ServiceURL,
		From:         target.Bot,
		Recipient:    target.User,
		Conversation: ConversationAccount{ID: target.ConversationID},
		Text:         text,
		Locale:       c.locale,
	}
	if _, err := c.SendToConversation(ctx, target.ServiceURL, target.ConversationID, activity); err != nil {
		return recordError(span, fmt.Errorf("failed to send notification: %w", err))
	}

	logger.InfoContext(ctx, "notification sent", "conversation.id", target.ConversationID)
	return nil
}

// CreateDirectConversation opens a one-to-one conversation between bot and
// user and returns its id.
func (c *Client) CreateDirectConversation(ctx context.Context, serviceURL string, bot, user Account) (string, error) {
	params := conversationParameters{Bot: bot, Members: []Account{user}}

	var resp ResourceResponse
	if err := c.post(ctx, serviceURL, "/v3/conversations", params, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("connector returned no conversation id")
	}
	return resp.ID, nil
}

func (c *Client) SendToConversation(ctx context.Context, serviceURL, conversationID string, activity Activity) (string, error) {
	if conversationID == "" {
		return "", errors.New("conversation id is required")
	}

	var resp ResourceResponse
	path := "/v3/conversations/" + url.PathEscape(conversationID) + "/activities"
	if err := c.post(ctx, serviceURL, path, activity, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) post(ctx context.Context, serviceURL, path string, body, out any) error {
	base, err := url.Parse(serviceURL)
	if err != nil || !base.IsAbs() || (base.Scheme != "http" && base.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidServiceURL, serviceURL)
	}
	if !c.isTrusted(serviceURL) {
		return fmt.Errorf("%w: %q", ErrUntrustedServiceURL, serviceURL)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimSuffix(base.String(), "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("failed to get token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func normalizeServiceURL(serviceURL string) string {
	return strings.ToLower(strings.TrimSuffix(serviceURL, "/"))
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
