package workflow

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// MaxMenuOptions is the number of digit keys (1-9) a menu can bind.
	MaxMenuOptions = 9
	// BackOptionKey is the terminator key bound to the "back" choice and
	// used to stop recordings.
	BackOptionKey = "#"

	DefaultCulture = "en-US"

	RecordingMaxDuration           = 60
	RecordingInitialSilenceTimeout = 5
	RecordingMaxSilenceTimeout     = 4
)

var ErrTooManyOptions = errors.New("too many options specified")

// BuildMenu creates a recognize action that reads text and offers
// numberOfOptions choices keyed by the digits 1..numberOfOptions. When
// includeBack is set an extra choice bound to BackOptionKey is appended.
// Keys "*" and "0" are left free for future options.
func BuildMenu(text string, numberOfOptions int, includeBack bool) (*Recognize, error) {
	if numberOfOptions > MaxMenuOptions {
		return nil, fmt.Errorf("%w: %d, keypad allows at most %d", ErrTooManyOptions, numberOfOptions, MaxMenuOptions)
	}
	if numberOfOptions < 0 {
		return nil, fmt.Errorf("number of options must not be negative, got %d", numberOfOptions)
	}

	choices := make([]RecognitionChoice, 0, numberOfOptions+1)
	for i := 1; i <= numberOfOptions; i++ {
		key := strconv.Itoa(i)
		choices = append(choices, RecognitionChoice{Label: key, TriggerKey: key})
	}
	if includeBack {
		choices = append(choices, RecognitionChoice{Label: BackOptionKey, TriggerKey: BackOptionKey})
	}

	return &Recognize{
		Base:           newBase(),
		PlayPrompt:     BuildPrompt(text),
		BargeInAllowed: true,
		Choices:        choices,
	}, nil
}

// MustBuildMenu is like BuildMenu but panics on an invalid menu. Use it for
// menus fixed at compile time.
func MustBuildMenu(text string, numberOfOptions int, includeBack bool) *Recognize {
	menu, err := BuildMenu(text, numberOfOptions, includeBack)
	if err != nil {
		panic(err)
	}
	return menu
}

func BuildPrompt(text string) *PlayPrompt {
	return &PlayPrompt{
		Base:    newBase(),
		Prompts: []Prompt{{Value: text, Voice: VoiceMale, Culture: DefaultCulture}},
	}
}

// BuildRecordingPrompt creates a record action that reads text, beeps and
// records until the caller presses BackOptionKey, stays silent or runs out
// of time.
func BuildRecordingPrompt(text string) *Record {
	return &Record{
		Base:                           newBase(),
		PlayPrompt:                     BuildPrompt(text),
		MaxDurationInSeconds:           RecordingMaxDuration,
		InitialSilenceTimeoutInSeconds: RecordingInitialSilenceTimeout,
		MaxSilenceTimeoutInSeconds:     RecordingMaxSilenceTimeout,
		PlayBeep:                       true,
		StopTones:                      []string{BackOptionKey},
		RecordingFormat:                RecordingFormatWav,
	}
}

func NewAnswer() *Answer { return &Answer{Base: newBase()} }

func NewHangup() *Hangup { return &Hangup{Base: newBase()} }
