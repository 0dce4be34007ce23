package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	orchestration "github.com/koscakluka/ema-ivr/core"
	"github.com/koscakluka/ema-ivr/core/notifications"
	"github.com/koscakluka/ema-ivr/core/speechtotext"
)

type transcriberStub struct {
	mu    sync.Mutex
	audio []byte
}

func (s *transcriberStub) Transcribe(_ context.Context, audio []byte, _ ...speechtotext.TranscriptionOption) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append([]byte(nil), audio...)
	return "my pipe is broken"
}

type notifierStub struct {
	mu    sync.Mutex
	texts []string
	users []string
}

func (s *notifierStub) Notify(_ context.Context, target *notifications.Target, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	s.users = append(s.users, target.User.ID)
	return nil
}

type workflowResponse struct {
	Actions []struct {
		Action      string `json:"action"`
		OperationID string `json:"operationId"`
	} `json:"actions"`
	Links *struct {
		Callback string `json:"callback"`
	} `json:"links"`
}

func post(t *testing.T, server *httptest.Server, path string, body any) (*http.Response, workflowResponse) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	var wf workflowResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&wf); err != nil {
			t.Fatalf("failed to decode workflow: %v", err)
		}
	}
	return resp, wf
}

func actionNames(wf workflowResponse) []string {
	names := make([]string, 0, len(wf.Actions))
	for _, action := range wf.Actions {
		names = append(names, action.Action)
	}
	return names
}

func expectActions(t *testing.T, wf workflowResponse, expected ...string) {
	t.Helper()
	got := actionNames(wf)
	if len(got) != len(expected) {
		t.Fatalf("expected actions %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("expected actions %v, got %v", expected, got)
		}
	}
}

func newAttachedServer(t *testing.T) (*httptest.Server, *orchestration.Orchestrator, *transcriberStub, *notifierStub) {
	t.Helper()
	transcriber := &transcriberStub{}
	notifier := &notifierStub{}
	o := orchestration.NewOrchestrator(orchestration.WithTranscriber(transcriber), orchestration.WithNotifier(notifier))

	source := NewServer()
	if err := o.Attach(source); err != nil {
		t.Fatalf("expected attach to succeed, got %v", err)
	}
	t.Cleanup(o.Close)

	server := httptest.NewServer(source.Handler())
	t.Cleanup(server.Close)
	return server, o, transcriber, notifier
}

func TestCallFlowOverHTTP(t *testing.T) {
	server, o, transcriber, notifier := newAttachedServer(t)

	resp, wf := post(t, server, "/calls", map[string]any{
		"callId": "c1",
		"participants": []map[string]any{
			{"identity": "u1", "originator": true},
			{"identity": "bot", "originator": false},
		},
		"links": map[string]string{"callback": "https://transport.example/cb"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	expectActions(t, wf, "answer", "playPrompt")
	if wf.Links == nil || wf.Links.Callback != "https://transport.example/cb" {
		t.Fatalf("expected callback link, got %+v", wf.Links)
	}

	_, wf = post(t, server, "/calls/c1/prompt-completed", map[string]any{
		"operationId": wf.Actions[1].OperationID,
		"outcome":     "success",
	})
	expectActions(t, wf, "recognize")

	_, wf = post(t, server, "/calls/c1/recognize-completed", map[string]any{
		"outcome":    "success",
		"choiceName": "2",
	})
	expectActions(t, wf, "record")

	recording := []byte("RIFF audio bytes")
	_, wf = post(t, server, "/calls/c1/record-completed", map[string]any{
		"outcome":   "success",
		"recording": base64.StdEncoding.EncodeToString(recording),
	})
	expectActions(t, wf, "playPrompt", "hangup")
	if wf.Links != nil {
		t.Fatalf("expected links cleared, got %+v", wf.Links)
	}

	transcriber.mu.Lock()
	if !bytes.Equal(transcriber.audio, recording) {
		t.Fatalf("expected recorded bytes transcribed, got %q", transcriber.audio)
	}
	transcriber.mu.Unlock()

	notifier.mu.Lock()
	if len(notifier.texts) != 1 || notifier.texts[0] != "We detected the following audio: my pipe is broken" || notifier.users[0] != "u1" {
		t.Fatalf("unexpected notifications %v to %v", notifier.texts, notifier.users)
	}
	notifier.mu.Unlock()

	resp, _ = post(t, server, "/calls/c1/hangup-completed", map[string]any{"outcome": "success"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 after hangup, got %d", resp.StatusCode)
	}
	if len(o.ActiveCalls()) != 0 {
		t.Fatalf("expected no active calls, got %v", o.ActiveCalls())
	}
}

func TestBadRequests(t *testing.T) {
	server, _, _, _ := newAttachedServer(t)

	cases := []struct {
		name string
		path string
		body string
	}{
		{name: "invalid json", path: "/calls", body: "{"},
		{name: "missing call id", path: "/calls", body: `{"participants":[]}`},
		{name: "unknown outcome", path: "/calls/c1/prompt-completed", body: `{"outcome":"maybe"}`},
		{name: "missing outcome", path: "/calls/c1/hangup-completed", body: `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(server.URL+tc.path, "application/json", bytes.NewBufferString(tc.body))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestUnknownCallPromptReturnsNoContent(t *testing.T) {
	server, _, _, _ := newAttachedServer(t)

	resp, _ := post(t, server, "/calls/ghost/prompt-completed", map[string]any{"outcome": "success"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestUnsubscribedServerIsUnavailable(t *testing.T) {
	source := NewServer()
	o := orchestration.NewOrchestrator()
	if err := o.Attach(source); err != nil {
		t.Fatalf("expected attach to succeed, got %v", err)
	}
	server := httptest.NewServer(source.Handler())
	defer server.Close()

	health, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("expected healthy while attached, got %d", health.StatusCode)
	}

	o.Close()

	resp, _ := post(t, server, "/calls", map[string]any{"callId": "c1"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after close, got %d", resp.StatusCode)
	}

	if _, err := source.Subscribe(orchestration.NewOrchestrator().Handlers()); err != nil {
		t.Fatalf("expected resubscribe after unsubscribe, got %v", err)
	}
}

func TestSubscribeRejectsSecondAndIncompleteHandlers(t *testing.T) {
	source := NewServer()
	if _, err := source.Subscribe(orchestration.Handlers{Name: "partial"}); !errors.Is(err, ErrIncompleteHandlers) {
		t.Fatalf("expected ErrIncompleteHandlers, got %v", err)
	}

	first, err := source.Subscribe(orchestration.NewOrchestrator().Handlers())
	if err != nil {
		t.Fatalf("expected first subscribe to succeed, got %v", err)
	}
	if _, err := source.Subscribe(orchestration.NewOrchestrator().Handlers()); !errors.Is(err, ErrHandlersRegistered) {
		t.Fatalf("expected ErrHandlersRegistered, got %v", err)
	}

	first.Unsubscribe()
	second, err := source.Subscribe(orchestration.NewOrchestrator().Handlers())
	if err != nil {
		t.Fatalf("expected subscribe after unsubscribe, got %v", err)
	}
	first.Unsubscribe()
	if _, ok := source.currentHandlers(); !ok {
		t.Fatalf("expected a stale unsubscribe to keep the current handlers")
	}
	second.Unsubscribe()
}

func TestOversizedRecordingIsRejected(t *testing.T) {
	source := NewServer(WithMaxRecordingBytes(64))
	o := orchestration.NewOrchestrator()
	if err := o.Attach(source); err != nil {
		t.Fatalf("expected attach to succeed, got %v", err)
	}
	defer o.Close()
	server := httptest.NewServer(source.Handler())
	defer server.Close()

	resp, _ := post(t, server, "/calls/c1/record-completed", map[string]any{
		"outcome":   "success",
		"recording": base64.StdEncoding.EncodeToString(make([]byte, 1024)),
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", resp.StatusCode)
	}
}

type slowTranscriber struct {
	release chan struct{}
}

func (s slowTranscriber) Transcribe(ctx context.Context, _ []byte, _ ...speechtotext.TranscriptionOption) string {
	<-s.release
	if ctx.Err() != nil {
		return ""
	}
	return "my pipe is broken"
}

type signallingNotifier struct {
	done chan error
	text chan string
}

func (n signallingNotifier) Notify(ctx context.Context, _ *notifications.Target, text string) error {
	n.text <- text
	n.done <- ctx.Err()
	return nil
}

func TestTranscriptSurvivesTransportTimeout(t *testing.T) {
	transcriber := slowTranscriber{release: make(chan struct{})}
	notifier := signallingNotifier{done: make(chan error, 1), text: make(chan string, 1)}
	o := orchestration.NewOrchestrator(orchestration.WithTranscriber(transcriber), orchestration.WithNotifier(notifier))
	source := NewServer()
	if err := o.Attach(source); err != nil {
		t.Fatalf("expected attach to succeed, got %v", err)
	}
	defer o.Close()
	server := httptest.NewServer(source.Handler())
	defer server.Close()

	_, wf := post(t, server, "/calls", map[string]any{
		"callId":       "c1",
		"participants": []map[string]any{{"identity": "u1", "originator": true}},
	})
	post(t, server, "/calls/c1/prompt-completed", map[string]any{"operationId": wf.Actions[1].OperationID, "outcome": "success"})
	post(t, server, "/calls/c1/recognize-completed", map[string]any{"outcome": "success", "choiceName": "2"})

	client := &http.Client{Timeout: 50 * time.Millisecond}
	payload, _ := json.Marshal(map[string]any{
		"outcome":   "success",
		"recording": base64.StdEncoding.EncodeToString([]byte("audio")),
	})
	if resp, err := client.Post(server.URL+"/calls/c1/record-completed", "application/json", bytes.NewReader(payload)); err == nil {
		resp.Body.Close()
		t.Fatalf("expected the transport request to time out")
	}
	close(transcriber.release)

	select {
	case text := <-notifier.text:
		if text != "We detected the following audio: my pipe is broken" {
			t.Fatalf("unexpected notification text %q", text)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("expected a notification after the transport gave up")
	}
	if err := <-notifier.done; err != nil {
		t.Fatalf("expected live notification context, got %v", err)
	}
}
