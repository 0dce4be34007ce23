package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/koscakluka/ema-ivr/core/events"
)

type connectorStub struct {
	mu            sync.Mutex
	created       []conversationParameters
	activities    []Activity
	activityPaths []string
	auth          []string
	failSend      bool
}

func (s *connectorStub) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v3/conversations", func(w http.ResponseWriter, r *http.Request) {
		var params conversationParameters
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			t.Errorf("failed to decode conversation parameters: %v", err)
		}
		s.mu.Lock()
		s.created = append(s.created, params)
		s.auth = append(s.auth, r.Header.Get("Authorization"))
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(ResourceResponse{ID: "conv-new"})
	})
	mux.HandleFunc("POST /v3/conversations/{id}/activities", func(w http.ResponseWriter, r *http.Request) {
		if s.failSend {
			http.Error(w, "connector down", http.StatusBadGateway)
			return
		}
		var activity Activity
		if err := json.NewDecoder(r.Body).Decode(&activity); err != nil {
			t.Errorf("failed to decode activity: %v", err)
		}
		s.mu.Lock()
		s.activities = append(s.activities, activity)
		s.activityPaths = append(s.activityPaths, r.PathValue("id"))
		s.auth = append(s.auth, r.Header.Get("Authorization"))
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(ResourceResponse{ID: "activity-1"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestTargetFromParticipants(t *testing.T) {
	target := TargetFromParticipants([]events.Participant{
		{Identity: "bot-1", DisplayName: "Bot"},
		{Identity: "user-7", DisplayName: "Caller", Originator: true},
	}, DefaultChannelID, DefaultServiceURL)

	if target.User.ID != "user-7" || target.User.Name != "Caller" {
		t.Fatalf("expected originator as user, got %+v", target.User)
	}
	if target.Bot.ID != "bot-1" {
		t.Fatalf("expected non-originator as bot, got %+v", target.Bot)
	}
	if target.ConversationID != "user-7" {
		t.Fatalf("expected originator identity as conversation id, got %q", target.ConversationID)
	}
	if target.ChannelID != "skype" || target.ServiceURL != "https://skype.botframework.com" {
		t.Fatalf("expected default channel, got %q at %q", target.ChannelID, target.ServiceURL)
	}
}

func TestNotifySendsToExistingConversation(t *testing.T) {
	stub := &connectorStub{}
	server := stub.server(t)
	client := New(StaticToken("secret"), WithTrustedServiceURLs(server.URL))

	target := &Target{
		ServiceURL:     server.URL,
		ChannelID:      "skype",
		ConversationID: "user-7",
		Bot:            Account{ID: "bot-1"},
		User:           Account{ID: "user-7"},
	}
	if err := client.Notify(context.Background(), target, "We detected the following audio: help"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if len(stub.created) != 0 {
		t.Fatalf("expected no conversation to be created, got %d", len(stub.created))
	}
	if len(stub.activities) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(stub.activities))
	}
	activity := stub.activities[0]
	if activity.Type != "message" || activity.Text != "We detected the following audio: help" {
		t.Fatalf("unexpected activity: %+v", activity)
	}
	if activity.Locale != "en-US" {
		t.Fatalf("expected en-US locale, got %q", activity.Locale)
	}
	if activity.From.ID != "bot-1" || activity.Recipient.ID != "user-7" {
		t.Fatalf("expected bot to user, got %q to %q", activity.From.ID, activity.Recipient.ID)
	}
	if stub.activityPaths[0] != "user-7" {
		t.Fatalf("expected activity on conversation user-7, got %q", stub.activityPaths[0])
	}
	if stub.auth[0] != "Bearer secret" {
		t.Fatalf("expected bearer token, got %q", stub.auth[0])
	}
}

func TestNotifyCreatesDirectConversation(t *testing.T) {
	stub := &connectorStub{}
	server := stub.server(t)
	client := New(nil, WithTrustedServiceURLs(server.URL+"/"))

	target := &Target{
		ServiceURL: server.URL,
		Bot:        Account{ID: "bot-1"},
		User:       Account{ID: "user-7"},
	}
	if err := client.Notify(context.Background(), target, "hello"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if len(stub.created) != 1 {
		t.Fatalf("expected 1 created conversation, got %d", len(stub.created))
	}
	if stub.created[0].Bot.ID != "bot-1" || len(stub.created[0].Members) != 1 || stub.created[0].Members[0].ID != "user-7" {
		t.Fatalf("unexpected conversation parameters: %+v", stub.created[0])
	}
	if target.ConversationID != "conv-new" {
		t.Fatalf("expected conversation id stored on target, got %q", target.ConversationID)
	}
	if stub.activityPaths[0] != "conv-new" {
		t.Fatalf("expected activity on new conversation, got %q", stub.activityPaths[0])
	}
	if stub.auth[0] != "" {
		t.Fatalf("expected no authorization without token source, got %q", stub.auth[0])
	}
}

func TestNotifyRejectsUntrustedServiceURL(t *testing.T) {
	stub := &connectorStub{}
	server := stub.server(t)
	client := New(StaticToken("secret"))

	target := &Target{ServiceURL: server.URL, ChannelID: "skype", ConversationID: "c"}
	err := client.Notify(context.Background(), target, "hello")
	if !errors.Is(err, ErrUntrustedServiceURL) {
		t.Fatalf("expected ErrUntrustedServiceURL, got %v", err)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if len(stub.activities) != 0 {
		t.Fatalf("expected nothing sent, got %d activities", len(stub.activities))
	}
}

func TestNotifyRejectsRelativeServiceURL(t *testing.T) {
	client := New(nil, WithTrustedServiceURLs("connector.local"))
	target := &Target{ServiceURL: "connector.local", ChannelID: "skype", ConversationID: "c"}
	if err := client.Notify(context.Background(), target, "hello"); !errors.Is(err, ErrInvalidServiceURL) {
		t.Fatalf("expected ErrInvalidServiceURL, got %v", err)
	}
}

func TestNotifyReturnsAPIError(t *testing.T) {
	stub := &connectorStub{failSend: true}
	server := stub.server(t)
	client := New(nil, WithTrustedServiceURLs(server.URL))

	target := &Target{ServiceURL: server.URL, ChannelID: "skype", ConversationID: "c"}
	err := client.Notify(context.Background(), target, "hello")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", apiErr.StatusCode)
	}
}

func TestNotifyRequiresTarget(t *testing.T) {
	client := New(nil)
	if err := client.Notify(context.Background(), nil, "hello"); !errors.Is(err, ErrMissingTarget) {
		t.Fatalf("expected ErrMissingTarget, got %v", err)
	}
}
