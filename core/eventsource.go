package orchestration

import (
	"context"
	"errors"

	"github.com/koscakluka/ema-ivr/core/events"
	"github.com/koscakluka/ema-ivr/core/workflow"
)

var (
	ErrAlreadyAttached = errors.New("orchestrator is already attached to an event source")
	ErrClosed          = errors.New("orchestrator is closed")
)

// Handlers is the named set of callbacks an EventSource delivers call
// events to. Each callback returns the next workflow for the call, or nil
// when there is nothing more to do.
type Handlers struct {
	Name string

	OnIncomingCall       func(context.Context, events.IncomingCall) *workflow.Workflow
	OnPromptCompleted    func(context.Context, events.PromptCompleted) *workflow.Workflow
	OnRecognizeCompleted func(context.Context, events.RecognizeCompleted) *workflow.Workflow
	OnRecordCompleted    func(context.Context, events.RecordCompleted) *workflow.Workflow
	OnHangupCompleted    func(context.Context, events.HangupCompleted) *workflow.Workflow
}

// EventSource is a telephony transport that delivers call events.
//
// Events for one call must be delivered in order and one at a time. Events
// of different calls may be delivered concurrently.
type EventSource interface {
	Subscribe(handlers Handlers) (Subscription, error)
}

type Subscription interface {
	// Unsubscribe removes every handler registered by the subscription. It
	// is safe to call more than once.
	Unsubscribe()
}
