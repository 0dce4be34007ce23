package speechtotext

import (
	"context"

	"github.com/koscakluka/ema-ivr/core/audio"
)

// Transcriber turns a finished recording into text. Transcription is best
// effort: implementations return an empty string on failure and report the
// failure themselves.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, opts ...TranscriptionOption) string
}

type TranscriptionOptions struct {
	EncodingInfo audio.EncodingInfo
	Language     string
}

type TranscriptionOption func(*TranscriptionOptions)

// NewTranscriptionOptions applies opts over the defaults: a wav recording
// in en-US.
func NewTranscriptionOptions(opts ...TranscriptionOption) TranscriptionOptions {
	options := TranscriptionOptions{
		EncodingInfo: audio.GetDefaultRecordingEncoding(),
		Language:     "en-US",
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if language != "" {
			o.Language = language
		}
	}
}
