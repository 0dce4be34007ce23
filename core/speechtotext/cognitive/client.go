// Package cognitive transcribes recordings with an HTTP speech recognizer
// that takes the whole recording in one POST and answers with JSON.
package cognitive

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

	"github.com/google/uuid"
	"github.com/koscakluka/ema-ivr/core/speechtotext"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ speechtotext.Transcriber = (*Client)(nil)

type Client struct {
	endpoint    string
	tokens      TokenSource
	contentType string
	httpClient  *http.Client

	newRequestID func() string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithContentType overrides the content type otherwise derived from the
// recording encoding.
func WithContentType(contentType string) Option {
	return func(c *Client) { c.contentType = contentType }
}

// New creates a client posting to endpoint. A fresh request id is appended
// to endpoint for every request.
func New(endpoint string, tokens TokenSource, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("recognition endpoint is required")
	}
	if tokens == nil {
		return nil, errors.New("token source is required")
	}

	client := &Client{
		endpoint:     endpoint,
		tokens:       tokens,
		httpClient:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Transcribe returns the recognized text, or an empty string when
// recognition fails for any reason. Failures are logged.
func (c *Client) Transcribe(ctx context.Context, audio []byte, opts ...speechtotext.TranscriptionOption) string {
	response, err := c.Recognize(ctx, audio, opts...)
	if err != nil {
		logger.ErrorContext(ctx, "speech recognition failed", "error", err)
		return ""
	}
	return response.Text()
}

func (c *Client) Recognize(ctx context.Context, audio []byte, opts ...speechtotext.TranscriptionOption) (*Response, error) {
	ctx, span := tracer.Start(ctx, "recognize speech")
	defer span.End()

	options := speechtotext.NewTranscriptionOptions(opts...)

	requestID := c.newRequestID()
	span.SetAttributes(
		attribute.String("request.id", requestID),
		attribute.Int("request.audio_bytes", len(audio)),
	)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error obtaining access token: %w", err))
	}

	uri, err := withLanguage(requestURI(c.endpoint, requestID), options.Language)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error building request uri: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(audio))
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error creating HTTP request: %w", err))
	}

	contentType := c.contentType
	if contentType == "" {
		contentType = options.EncodingInfo.MIMEType()
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error reading response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetAttributes(attribute.String("response.error", string(body)))
		return nil, recordError(span, fmt.Errorf("non-OK HTTP status: %s", resp.Status))
	}

	var response Response
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, recordError(span, fmt.Errorf("error unmarshalling response: %w", err))
	}
	if err := response.validate(); err != nil {
		return nil, recordError(span, err)
	}

	return &response, nil
}

// requestURI appends requestID to endpoint. Endpoints ending in "/" or "="
// (a query parameter awaiting its value) take the id as is.
func requestURI(endpoint, requestID string) string {
	if strings.HasSuffix(endpoint, "/") || strings.HasSuffix(endpoint, "=") {
		return endpoint + requestID
	}
	return endpoint + "/" + requestID
}

// withLanguage adds a language query parameter unless the endpoint already
// pins the locale with "language" or "locale".
func withLanguage(uri, language string) (string, error) {
	if language == "" {
		return uri, nil
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	if query.Has("language") || query.Has("locale") {
		return uri, nil
	}

	separator := "?"
	if parsed.RawQuery != "" {
		separator = "&"
	}
	return uri + separator + "language=" + url.QueryEscape(language), nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
