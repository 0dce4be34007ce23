package orchestration

import (
	"context"
	"errors"
	"slices"

	"github.com/koscakluka/ema-ivr/core/events"
	"github.com/koscakluka/ema-ivr/core/notifications"
	"github.com/koscakluka/ema-ivr/core/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var ErrUnknownCall = errors.New("event for unknown call")

// HandleIncomingCall registers the call and answers it with the welcome
// prompt.
func (o *Orchestrator) HandleIncomingCall(ctx context.Context, event events.IncomingCall) *workflow.Workflow {
	ctx, span := startCallSpan(ctx, "handle incoming call", event)
	defer span.End()

	welcome := workflow.BuildPrompt(o.messages.Welcome)
	participants := slices.Clone(event.Participants)
	call := &Call{
		ID:                 event.CallID(),
		Participants:       participants,
		State:              CallStateStarted,
		WelcomeOperationID: welcome.OperationID(),
		Target:             notifications.TargetFromParticipants(participants, o.channelID, o.serviceURL),
	}
	if replaced := o.calls.add(call); replaced {
		logger.WarnContext(ctx, "incoming call replaced an active call with the same id", "call.id", call.ID)
	}
	span.SetAttributes(attribute.Int("call.participants", len(participants)))

	return &workflow.Workflow{
		Actions: []workflow.Action{workflow.NewAnswer(), welcome},
		Links:   event.Links,
	}
}

// HandlePromptCompleted presents the main menu once the welcome prompt has
// played. Completions of other prompts need no follow-up.
func (o *Orchestrator) HandlePromptCompleted(ctx context.Context, event events.PromptCompleted) *workflow.Workflow {
	ctx, span := startCallSpan(ctx, "handle prompt completed", event)
	defer span.End()

	welcomed := false
	known := o.calls.update(event.CallID(), func(call *Call) {
		if isWelcomePrompt(call, event.OperationID) {
			welcomed = true
			call.State = CallStateMenuPresented
		}
	})
	if !known {
		ignoreUnknownCall(ctx, span, event)
		return nil
	}
	if !welcomed {
		logger.DebugContext(ctx, "prompt completed without follow-up", "call.id", event.CallID(), "operation.id", event.OperationID)
		return nil
	}

	return o.mainMenu(event.Links)
}

// isWelcomePrompt matches the welcome prompt by operation id. Transports
// that do not report operation ids only complete the welcome prompt while
// the call has just started.
func isWelcomePrompt(call *Call, operationID string) bool {
	if operationID != "" {
		return operationID == call.WelcomeOperationID
	}
	return call.State == CallStateStarted
}

// HandleRecognizeCompleted starts the recording when the caller picked
// support and presents the main menu again otherwise.
func (o *Orchestrator) HandleRecognizeCompleted(ctx context.Context, event events.RecognizeCompleted) *workflow.Workflow {
	ctx, span := startCallSpan(ctx, "handle recognize completed", event)
	defer span.End()

	option := MenuOption(event.ChoiceName)
	recording := event.Outcome.Succeeded() && option == MenuOptionSupport
	span.SetAttributes(
		attribute.String("recognize.outcome", string(event.Outcome)),
		attribute.String("recognize.choice", event.ChoiceName),
	)

	known := o.calls.update(event.CallID(), func(call *Call) {
		if recording {
			call.ChosenOption = option
			call.State = CallStateRecording
		} else {
			call.State = CallStateMenuPresented
		}
	})
	if !known {
		ignoreUnknownCall(ctx, span, event)
		return nil
	}

	if !recording {
		logger.InfoContext(ctx, "presenting main menu again", "call.id", event.CallID(), "outcome", event.Outcome, "choice", event.ChoiceName)
		return o.mainMenu(event.Links)
	}

	return &workflow.Workflow{
		Actions: []workflow.Action{workflow.BuildRecordingPrompt(o.messages.NoConsultants)},
		Links:   event.Links,
	}
}

// HandleRecordCompleted ends the call with a goodbye. A successful
// recording is transcribed and the transcript sent to the operator first.
// The call is removed from the registry whatever happens downstream.
func (o *Orchestrator) HandleRecordCompleted(ctx context.Context, event events.RecordCompleted) *workflow.Workflow {
	ctx, span := startCallSpan(ctx, "handle record completed", event)
	defer span.End()
	span.SetAttributes(attribute.String("record.outcome", string(event.Outcome)))

	goodbye := &workflow.Workflow{
		Actions: []workflow.Action{workflow.BuildPrompt(o.messages.Ending), workflow.NewHangup()},
	}

	call, stored, known := o.calls.lookup(event.CallID())
	if !known {
		discardRecording(event.Recording)
		ignoreUnknownCall(ctx, span, event)
		return goodbye
	}

	// The transport giving up on this event must not cut transcription or
	// notification short.
	ctx = context.WithoutCancel(ctx)
	defer o.completeCall(ctx, stored, event.Outcome)

	if !event.Outcome.Succeeded() {
		discardRecording(event.Recording)
		logger.InfoContext(ctx, "recording failed, skipping transcription", "call.id", call.ID)
		return goodbye
	}

	transcript := ""
	if audio, err := readRecording(event.Recording); err != nil {
		recordError(span, err)
		logger.ErrorContext(ctx, "failed to read recording", "call.id", call.ID, "error", err)
	} else {
		transcript = o.transcribe(ctx, call.ID, audio)
	}

	o.notify(ctx, call, TranscriptPrefix+transcript)
	return goodbye
}

// HandleHangupCompleted ends handling of the call. Nothing follows a hangup.
func (o *Orchestrator) HandleHangupCompleted(ctx context.Context, event events.HangupCompleted) *workflow.Workflow {
	ctx, span := startCallSpan(ctx, "handle hangup completed", event)
	defer span.End()

	if o.calls.remove(event.CallID()) {
		logger.InfoContext(ctx, "call hung up before its recording completed", "call.id", event.CallID())
	}
	return nil
}

func (o *Orchestrator) mainMenu(links *workflow.Links) *workflow.Workflow {
	return &workflow.Workflow{
		Actions: []workflow.Action{workflow.MustBuildMenu(o.messages.MainMenu, mainMenuOptions, false)},
		Links:   links,
	}
}

func (o *Orchestrator) transcribe(ctx context.Context, callID string, audio []byte) string {
	if o.transcriber == nil {
		logger.WarnContext(ctx, "no transcriber configured", "call.id", callID)
		return ""
	}

	ctx, span := tracer.Start(ctx, "transcribe recording", trace.WithAttributes(
		attribute.String("call.id", callID),
		attribute.Int("recording.bytes", len(audio)),
	))
	defer span.End()

	var transcript string
	run := panicSafeNamedWorker("transcription", func(ctx context.Context) error {
		transcript = o.transcriber.Transcribe(ctx, audio, o.transcriptionOptions...)
		return nil
	})
	if err := run(ctx); err != nil {
		recordError(span, err)
		logger.ErrorContext(ctx, "transcription failed", "call.id", callID, "error", err)
		return ""
	}
	if transcript == "" {
		logger.WarnContext(ctx, "transcription returned no text", "call.id", callID)
	}
	return transcript
}

func (o *Orchestrator) notify(ctx context.Context, call Call, text string) {
	if o.notifier == nil {
		logger.WarnContext(ctx, "no notifier configured", "call.id", call.ID)
		return
	}

	target := call.Target
	if target == nil {
		target = notifications.TargetFromParticipants(call.Participants, o.channelID, o.serviceURL)
	}

	ctx, span := tracer.Start(ctx, "notify operator", trace.WithAttributes(attribute.String("call.id", call.ID)))
	defer span.End()

	run := panicSafeNamedWorker("notification", func(ctx context.Context) error {
		return o.notifier.Notify(ctx, target, text)
	})
	if err := run(ctx); err != nil {
		recordError(span, err)
		logger.ErrorContext(ctx, "notification failed", "call.id", call.ID, "error", err)
	}
}

// completeCall removes call unless a new call with the same id replaced it
// in the meantime.
func (o *Orchestrator) completeCall(ctx context.Context, call *Call, outcome events.Outcome) {
	if !o.calls.removeIf(call.ID, call) {
		logger.WarnContext(ctx, "call was replaced before its teardown", "call.id", call.ID)
	}
	callsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("record.outcome", string(outcome))))
	logger.InfoContext(ctx, "call completed", "call.id", call.ID, "record.outcome", outcome)
}

func ignoreUnknownCall(ctx context.Context, span trace.Span, event events.Event) {
	span.RecordError(ErrUnknownCall)
	logger.WarnContext(ctx, "ignoring event", "call.id", event.CallID(), "event.kind", event.Kind(), "error", ErrUnknownCall)
}
