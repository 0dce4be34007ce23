package events

// Outcome is the result the transport reports for an executed action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

func (o Outcome) Succeeded() bool { return o == OutcomeSuccess }

// Participant is a party on the call as captured at call start.
type Participant struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName,omitempty"`
	// Originator is true for the caller and false for the bot side.
	Originator bool `json:"originator"`
}
