package workflow

import (
	"encoding/json"

	"github.com/google/uuid"
)

type ActionKind string

const (
	KindAnswer     ActionKind = "answer"
	KindPlayPrompt ActionKind = "playPrompt"
	KindRecognize  ActionKind = "recognize"
	KindRecord     ActionKind = "record"
	KindHangup     ActionKind = "hangup"
)

// Action is a single instruction for the transport. The operation id lets
// the transport correlate its outcome events with the action.
type Action interface {
	Kind() ActionKind
	OperationID() string
}

type Base struct {
	ID string `json:"operationId"`
}

func newBase() Base { return Base{ID: uuid.NewString()} }

func (b Base) OperationID() string { return b.ID }

type VoiceGender string

const (
	VoiceMale   VoiceGender = "male"
	VoiceFemale VoiceGender = "female"
)

type RecordingFormat string

const (
	RecordingFormatWav RecordingFormat = "wav"
	RecordingFormatWma RecordingFormat = "wma"
	RecordingFormatMp3 RecordingFormat = "mp3"
)

// Prompt is one piece of spoken text.
type Prompt struct {
	Value   string      `json:"value"`
	Voice   VoiceGender `json:"voice"`
	Culture string      `json:"culture"`
}

type Answer struct{ Base }

func (Answer) Kind() ActionKind { return KindAnswer }

func (a Answer) MarshalJSON() ([]byte, error) {
	type answer Answer
	return json.Marshal(struct {
		Action ActionKind `json:"action"`
		answer
	}{KindAnswer, answer(a)})
}

type PlayPrompt struct {
	Base
	Prompts []Prompt `json:"prompts"`
}

func (PlayPrompt) Kind() ActionKind { return KindPlayPrompt }

func (p PlayPrompt) MarshalJSON() ([]byte, error) {
	type playPrompt PlayPrompt
	return json.Marshal(struct {
		Action ActionKind `json:"action"`
		playPrompt
	}{KindPlayPrompt, playPrompt(p)})
}

// RecognitionChoice binds a menu option label to the key that selects it.
type RecognitionChoice struct {
	Label      string `json:"label"`
	TriggerKey string `json:"triggerKey"`
}

type Recognize struct {
	Base
	PlayPrompt     *PlayPrompt         `json:"playPrompt,omitempty"`
	BargeInAllowed bool                `json:"bargeInAllowed"`
	Choices        []RecognitionChoice `json:"choices"`
}

func (Recognize) Kind() ActionKind { return KindRecognize }

func (r Recognize) MarshalJSON() ([]byte, error) {
	type recognize Recognize
	return json.Marshal(struct {
		Action ActionKind `json:"action"`
		recognize
	}{KindRecognize, recognize(r)})
}

type Record struct {
	Base
	PlayPrompt                     *PlayPrompt     `json:"playPrompt,omitempty"`
	MaxDurationInSeconds           int             `json:"maxDurationInSeconds"`
	InitialSilenceTimeoutInSeconds int             `json:"initialSilenceTimeoutInSeconds"`
	MaxSilenceTimeoutInSeconds     int             `json:"maxSilenceTimeoutInSeconds"`
	PlayBeep                       bool            `json:"playBeep"`
	StopTones                      []string        `json:"stopTones"`
	RecordingFormat                RecordingFormat `json:"recordingFormat"`
}

func (Record) Kind() ActionKind { return KindRecord }

func (r Record) MarshalJSON() ([]byte, error) {
	type record Record
	return json.Marshal(struct {
		Action ActionKind `json:"action"`
		record
	}{KindRecord, record(r)})
}

type Hangup struct{ Base }

func (Hangup) Kind() ActionKind { return KindHangup }

func (h Hangup) MarshalJSON() ([]byte, error) {
	type hangup Hangup
	return json.Marshal(struct {
		Action ActionKind `json:"action"`
		hangup
	}{KindHangup, hangup(h)})
}
