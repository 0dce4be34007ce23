package orchestration

import (
	"context"

	"github.com/koscakluka/ema-ivr/core/notifications"
	"github.com/koscakluka/ema-ivr/core/speechtotext"
)

type OrchestratorOption func(*Orchestrator)

// Notifier delivers text to the party a target addresses. It may store the
// conversation it used on the target.
type Notifier interface {
	Notify(ctx context.Context, target *notifications.Target, text string) error
}

func WithTranscriber(client speechtotext.Transcriber) OrchestratorOption {
	return func(o *Orchestrator) {
		o.transcriber = client
	}
}

func WithTranscriptionOptions(opts ...speechtotext.TranscriptionOption) OrchestratorOption {
	return func(o *Orchestrator) {
		o.transcriptionOptions = append(o.transcriptionOptions, opts...)
	}
}

func WithNotifier(client Notifier) OrchestratorOption {
	return func(o *Orchestrator) {
		o.notifier = client
	}
}

// WithNotificationChannel sets the channel and connector service URL of the
// targets built for new calls.
func WithNotificationChannel(channelID, serviceURL string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.channelID = channelID
		o.serviceURL = serviceURL
	}
}

// WithMessages overrides the texts spoken to callers. Empty texts keep
// their defaults.
func WithMessages(messages Messages) OrchestratorOption {
	return func(o *Orchestrator) {
		o.messages = messages.withDefaults()
	}
}
