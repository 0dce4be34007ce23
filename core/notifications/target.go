// Package notifications delivers call outcomes to a human listener through a
// conversation connector.
package notifications

import (
	"github.com/koscakluka/ema-ivr/core/events"
)

const (
	DefaultChannelID  = "skype"
	DefaultServiceURL = "https://skype.botframework.com"
	DefaultLocale     = "en-US"
)

type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type ConversationAccount struct {
	ID      string `json:"id"`
	IsGroup bool   `json:"isGroup,omitempty"`
}

// Target is where notifications about a single call go. Bot is the sender,
// User the recipient.
type Target struct {
	ServiceURL     string
	ChannelID      string
	ConversationID string
	Bot            Account
	User           Account
}

// TargetFromParticipants addresses the call's originator as the recipient.
// The originator's identity doubles as the conversation id; any other
// participant becomes the sender.
func TargetFromParticipants(participants []events.Participant, channelID, serviceURL string) *Target {
	target := &Target{ServiceURL: serviceURL, ChannelID: channelID}
	for _, p := range participants {
		if p.Originator {
			target.User = Account{ID: p.Identity, Name: p.DisplayName}
			target.ConversationID = p.Identity
		} else {
			target.Bot = Account{ID: p.Identity, Name: p.DisplayName}
		}
	}
	return target
}

func (t *Target) hasConversation() bool {
	return t.ConversationID != "" && t.ChannelID != ""
}
