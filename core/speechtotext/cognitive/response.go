package cognitive

import (
	"errors"
	"fmt"
)

var (
	ErrMissingHeader     = errors.New("recognition response has no header")
	ErrMissingText       = errors.New("recognition response has no recognized text")
	ErrRecognitionFailed = errors.New("recognition did not succeed")
)

// Response is the recognizer's reply. Only Header.Name is used as the
// transcript; the rest is kept for diagnostics.
type Response struct {
	Version string   `json:"version,omitempty"`
	Header  *Header  `json:"header,omitempty"`
	Results []Result `json:"results,omitempty"`
}

type Header struct {
	Status     string            `json:"status,omitempty"`
	Scenario   string            `json:"scenario,omitempty"`
	Name       *string           `json:"name,omitempty"`
	Lexical    string            `json:"lexical,omitempty"`
	Properties *HeaderProperties `json:"properties,omitempty"`
}

type HeaderProperties struct {
	RequestID      string `json:"requestid,omitempty"`
	HighConfidence string `json:"HIGHCONF,omitempty"`
	MidConfidence  string `json:"MIDCONF,omitempty"`
	LowConfidence  string `json:"LOWCONF,omitempty"`
	NoSpeech       string `json:"NOSPEECH,omitempty"`
	FalseReco      string `json:"FALSERECO,omitempty"`
}

type Result struct {
	Scenario   string `json:"scenario,omitempty"`
	Name       string `json:"name,omitempty"`
	Lexical    string `json:"lexical,omitempty"`
	Confidence string `json:"confidence,omitempty"`
}

const statusSuccess = "success"

func (r *Response) validate() error {
	if r.Header == nil {
		return ErrMissingHeader
	}
	if r.Header.Status != "" && r.Header.Status != statusSuccess {
		return fmt.Errorf("%w: status %q", ErrRecognitionFailed, r.Header.Status)
	}
	if r.Header.Name == nil {
		return ErrMissingText
	}
	return nil
}

// Text returns the recognized text, or an empty string when there is none.
func (r *Response) Text() string {
	if r == nil || r.Header == nil || r.Header.Name == nil {
		return ""
	}
	return *r.Header.Name
}
