package orchestration

// TranscriptPrefix precedes every transcript sent to the operator.
const TranscriptPrefix = "We detected the following audio: "

// Messages are the fixed texts spoken to the caller.
type Messages struct {
	Welcome       string `json:"welcome" yaml:"welcome"`
	MainMenu      string `json:"mainMenu" yaml:"main_menu"`
	NoConsultants string `json:"noConsultants" yaml:"no_consultants"`
	Ending        string `json:"ending" yaml:"ending"`
}

func DefaultMessages() Messages {
	return Messages{
		Welcome:       "Hello, you have successfully contacted the Emergency Services Bot.",
		MainMenu:      "If you have a life threatening medical emergency please contact the emergency services or go to your nearest hospital.  For non-life threatening situations please press 2.",
		NoConsultants: "Whilst we wait to connect you, please leave your name and a description of your problem. You can press the hash key when finished. We will call you as soon as possible.",
		Ending:        "Thank you for leaving the message, goodbye",
	}
}

// withDefaults fills empty texts from DefaultMessages.
func (m Messages) withDefaults() Messages {
	defaults := DefaultMessages()
	if m.Welcome == "" {
		m.Welcome = defaults.Welcome
	}
	if m.MainMenu == "" {
		m.MainMenu = defaults.MainMenu
	}
	if m.NoConsultants == "" {
		m.NoConsultants = defaults.NoConsultants
	}
	if m.Ending == "" {
		m.Ending = defaults.Ending
	}
	return m
}
