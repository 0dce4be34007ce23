// Package orchestration runs the call flow of the IVR: it answers calls,
// presents the main menu, records the caller's message and hands the
// transcript to an operator.
package orchestration

import (
	"context"
	"sync"

	"github.com/koscakluka/ema-ivr/core/events"
	"github.com/koscakluka/ema-ivr/core/notifications"
	"github.com/koscakluka/ema-ivr/core/speechtotext"
	"github.com/koscakluka/ema-ivr/core/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const handlersName = "ivr-call-flow"

type Orchestrator struct {
	calls *callRegistry

	transcriber          speechtotext.Transcriber
	transcriptionOptions []speechtotext.TranscriptionOption
	notifier             Notifier
	channelID            string
	serviceURL           string
	messages             Messages

	mu           sync.Mutex
	subscription Subscription
	closed       bool
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		calls:      newCallRegistry(),
		channelID:  notifications.DefaultChannelID,
		serviceURL: notifications.DefaultServiceURL,
		messages:   DefaultMessages(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Attach registers the orchestrator's handlers with source. An orchestrator
// is attached to at most one source at a time.
func (o *Orchestrator) Attach(source EventSource) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	if o.subscription != nil {
		return ErrAlreadyAttached
	}

	subscription, err := source.Subscribe(o.Handlers())
	if err != nil {
		return err
	}
	o.subscription = subscription
	return nil
}

// Close unregisters all handlers. Calls still in progress stay in the
// registry; no further events reach them through the detached source.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	if o.subscription != nil {
		o.subscription.Unsubscribe()
		o.subscription = nil
	}
}

func (o *Orchestrator) Handlers() Handlers {
	return Handlers{
		Name:                 handlersName,
		OnIncomingCall:       o.HandleIncomingCall,
		OnPromptCompleted:    o.HandlePromptCompleted,
		OnRecognizeCompleted: o.HandleRecognizeCompleted,
		OnRecordCompleted:    o.HandleRecordCompleted,
		OnHangupCompleted:    o.HandleHangupCompleted,
	}
}

// Handle dispatches event to its handler and returns the next workflow.
func (o *Orchestrator) Handle(ctx context.Context, event events.Event) *workflow.Workflow {
	switch typedEvent := event.(type) {
	case events.IncomingCall:
		return o.HandleIncomingCall(ctx, typedEvent)
	case events.PromptCompleted:
		return o.HandlePromptCompleted(ctx, typedEvent)
	case events.RecognizeCompleted:
		return o.HandleRecognizeCompleted(ctx, typedEvent)
	case events.RecordCompleted:
		return o.HandleRecordCompleted(ctx, typedEvent)
	case events.HangupCompleted:
		return o.HandleHangupCompleted(ctx, typedEvent)
	case nil:
		logger.WarnContext(ctx, "ignoring nil event")
		return nil
	default:
		logger.WarnContext(ctx, "ignoring unsupported event", "event.kind", event.Kind(), "call.id", event.CallID())
		return nil
	}
}

// ActiveCalls lists the ids of calls in progress, sorted.
func (o *Orchestrator) ActiveCalls() []string {
	return o.calls.ids()
}

// Call returns a copy of the state of the call with the given id.
func (o *Orchestrator) Call(id string) (Call, bool) {
	return o.calls.get(id)
}

func startCallSpan(ctx context.Context, name string, event events.Event) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("call.id", event.CallID()),
		attribute.String("event.kind", string(event.Kind())),
	))
}
