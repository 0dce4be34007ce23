package events

import (
	"io"

	"github.com/koscakluka/ema-ivr/core/workflow"
)

const (
	// KindIncomingCall identifies a new call offered by the transport.
	KindIncomingCall Kind = "call.incoming"
	// KindPromptCompleted identifies completion of a play-prompt action.
	KindPromptCompleted Kind = "call.prompt_completed"
	// KindRecognizeCompleted identifies completion of a recognize action.
	KindRecognizeCompleted Kind = "call.recognize_completed"
	// KindRecordCompleted identifies completion of a record action.
	KindRecordCompleted Kind = "call.record_completed"
	// KindHangupCompleted identifies completion of a hangup action.
	KindHangupCompleted Kind = "call.hangup_completed"
)

// IncomingCall announces a call. Links carries the continuation the
// transport proposes for the resulting workflow.
type IncomingCall struct {
	Base
	Participants []Participant
	Links        *workflow.Links
}

// NewIncomingCall creates an incoming call event.
func NewIncomingCall(callID string, participants []Participant, links *workflow.Links) IncomingCall {
	return IncomingCall{Base: NewBase(KindIncomingCall, callID), Participants: participants, Links: links}
}

// PromptCompleted reports the outcome of a play-prompt action. OperationID
// is the id of the completed action and may be empty when the transport
// does not report it.
type PromptCompleted struct {
	Base
	OperationID string
	Outcome     Outcome
	Links       *workflow.Links
}

// NewPromptCompleted creates a prompt completed event.
func NewPromptCompleted(callID, operationID string, outcome Outcome, links *workflow.Links) PromptCompleted {
	return PromptCompleted{
		Base:        NewBase(KindPromptCompleted, callID),
		OperationID: operationID,
		Outcome:     outcome,
		Links:       links,
	}
}

// RecognizeCompleted reports the outcome of a recognize action together
// with the name of the chosen option.
type RecognizeCompleted struct {
	Base
	OperationID string
	Outcome     Outcome
	ChoiceName  string
	Links       *workflow.Links
}

// NewRecognizeCompleted creates a recognize completed event.
func NewRecognizeCompleted(callID, operationID string, outcome Outcome, choiceName string, links *workflow.Links) RecognizeCompleted {
	return RecognizeCompleted{
		Base:        NewBase(KindRecognizeCompleted, callID),
		OperationID: operationID,
		Outcome:     outcome,
		ChoiceName:  choiceName,
		Links:       links,
	}
}

// RecordCompleted reports the outcome of a record action. Recording streams
// the recorded audio and is only meaningful on success. When it implements
// io.Closer it is closed once consumed.
type RecordCompleted struct {
	Base
	OperationID string
	Outcome     Outcome
	Recording   io.Reader
}

// NewRecordCompleted creates a record completed event.
func NewRecordCompleted(callID, operationID string, outcome Outcome, recording io.Reader) RecordCompleted {
	return RecordCompleted{
		Base:        NewBase(KindRecordCompleted, callID),
		OperationID: operationID,
		Outcome:     outcome,
		Recording:   recording,
	}
}

// HangupCompleted reports that the transport hung up the call.
type HangupCompleted struct {
	Base
	OperationID string
	Outcome     Outcome
}

// NewHangupCompleted creates a hangup completed event.
func NewHangupCompleted(callID, operationID string, outcome Outcome) HangupCompleted {
	return HangupCompleted{
		Base:        NewBase(KindHangupCompleted, callID),
		OperationID: operationID,
		Outcome:     outcome,
	}
}
