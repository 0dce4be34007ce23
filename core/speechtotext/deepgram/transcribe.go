// Package deepgram transcribes finished recordings by streaming them through
// Deepgram's live listen websocket.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-ivr/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultListenURL = "wss://api.deepgram.com/v1/listen"

	chunkDurationMs  = 100
	defaultChunkSize = 8192
)

var _ speechtotext.Transcriber = (*TranscriptionClient)(nil)

type TranscriptionClient struct {
	apiKey    string
	listenURL string
	model     string
	dialer    *websocket.Dialer
}

type Option func(*TranscriptionClient)

func WithListenURL(listenURL string) Option {
	return func(c *TranscriptionClient) {
		if listenURL != "" {
			c.listenURL = listenURL
		}
	}
}

func WithModel(model string) Option {
	return func(c *TranscriptionClient) {
		if model != "" {
			c.model = model
		}
	}
}

// NewTranscriptionClient creates a client authenticated with apiKey, falling
// back to DEEPGRAM_API_KEY.
func NewTranscriptionClient(apiKey string, opts ...Option) (*TranscriptionClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("DEEPGRAM_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	client := &TranscriptionClient{
		apiKey:    apiKey,
		listenURL: DefaultListenURL,
		model:     "nova-3",
		dialer:    websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Transcribe returns the final transcript of audio, or an empty string when
// transcription fails. Failures are logged.
func (c *TranscriptionClient) Transcribe(ctx context.Context, audio []byte, opts ...speechtotext.TranscriptionOption) string {
	transcript, err := c.TranscribeAudio(ctx, audio, opts...)
	if err != nil {
		logger.ErrorContext(ctx, "deepgram transcription failed", "error", err)
		return ""
	}
	return transcript
}

func (c *TranscriptionClient) TranscribeAudio(ctx context.Context, audio []byte, opts ...speechtotext.TranscriptionOption) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe recording")
	defer span.End()

	options := speechtotext.NewTranscriptionOptions(opts...)
	span.SetAttributes(attribute.Int("request.audio_bytes", len(audio)))

	listenURL, err := c.buildListenURL(options)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	conn, _, err := c.dialer.DialContext(ctx, listenURL, http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		err = fmt.Errorf("failed to open socket connection to deepgram: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	defer conn.Close()

	results := make(chan transcriptResult, 1)
	go func() { results <- collectTranscript(conn) }()

	if err := sendRecording(conn, audio, chunkSize(options)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case result := <-results:
		if result.err != nil {
			span.RecordError(result.err)
			span.SetStatus(codes.Error, result.err.Error())
		}
		return result.transcript, result.err
	}
}

func (c *TranscriptionClient) buildListenURL(options speechtotext.TranscriptionOptions) (string, error) {
	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return "", fmt.Errorf("invalid encoding: %w", err)
	}

	listenURL, err := url.Parse(c.listenURL)
	if err != nil {
		return "", fmt.Errorf("invalid listen url: %w", err)
	}

	queryParams := listenURL.Query()
	if encoding != nil {
		queryParams.Set("encoding", encoding.Format.Name())
		queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
		queryParams.Set("channels", "1")
	}
	queryParams.Set("model", c.model)
	queryParams.Set("language", options.Language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("punctuate", "true")

	listenURL.RawQuery = queryParams.Encode()
	return listenURL.String(), nil
}

func chunkSize(options speechtotext.TranscriptionOptions) int {
	if options.EncodingInfo.IsContainerized() {
		return defaultChunkSize
	}
	if size := options.EncodingInfo.BytesPer(chunkDurationMs); size > 0 {
		return size
	}
	return defaultChunkSize
}

func sendRecording(conn *websocket.Conn, audio []byte, chunk int) error {
	for len(audio) > 0 {
		n := min(chunk, len(audio))
		if err := conn.WriteMessage(websocket.BinaryMessage, audio[:n]); err != nil {
			return fmt.Errorf("failed to write to deepgram client: %w", err)
		}
		audio = audio[n:]
	}

	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	return nil
}

type transcriptResult struct {
	transcript string
	err        error
}

// collectTranscript reads until the service closes the socket and joins the
// final transcripts in order.
func collectTranscript(conn *websocket.Conn) transcriptResult {
	var segments []string
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			transcript := strings.Join(segments, " ")
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return transcriptResult{transcript: transcript}
			}
			return transcriptResult{transcript: transcript, err: fmt.Errorf("failed to read deepgram websocket message: %w", err)}
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		segment, err := finalSegment(msg)
		if err != nil {
			logger.Warn("failed to unmarshal deepgram message", "error", err)
			continue
		}
		if segment != "" {
			segments = append(segments, segment)
		}
	}
}

func finalSegment(msg []byte) (string, error) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		return "", err
	}

	if api.TypeResponse(parsedMsg.Type) != api.TypeMessageResponse {
		return "", nil
	}

	var msgResp api.MessageResponse
	if err := json.Unmarshal(msg, &msgResp); err != nil {
		return "", err
	}
	if !msgResp.IsFinal || len(msgResp.Channel.Alternatives) == 0 {
		return "", nil
	}

	return strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript), nil
}
