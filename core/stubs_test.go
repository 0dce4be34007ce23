package orchestration

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/koscakluka/ema-ivr/core/notifications"
	"github.com/koscakluka/ema-ivr/core/speechtotext"
)

type transcriberStub struct {
	mu           sync.Mutex
	audio        [][]byte
	transcript   string
	panics       bool
	onTranscribe func(ctx context.Context)
}

func (s *transcriberStub) Transcribe(ctx context.Context, audio []byte, _ ...speechtotext.TranscriptionOption) string {
	if s.onTranscribe != nil {
		s.onTranscribe(ctx)
	}

	s.mu.Lock()
	s.audio = append(s.audio, append([]byte(nil), audio...))
	s.mu.Unlock()

	if s.panics {
		panic("transcriber exploded")
	}
	return s.transcript
}

func (s *transcriberStub) calls() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.audio...)
}

type notification struct {
	target notifications.Target
	text   string
	ctxErr error
}

type notifierStub struct {
	mu            sync.Mutex
	notifications []notification
	err           error
	panics        bool
	onNotify      func(target *notifications.Target)
}

func (s *notifierStub) Notify(ctx context.Context, target *notifications.Target, text string) error {
	if s.onNotify != nil {
		s.onNotify(target)
	}

	s.mu.Lock()
	s.notifications = append(s.notifications, notification{target: *target, text: text, ctxErr: ctx.Err()})
	s.mu.Unlock()

	if s.panics {
		panic("notifier exploded")
	}
	return s.err
}

func (s *notifierStub) sent() []notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification(nil), s.notifications...)
}

var errConnectorDown = errors.New("connector down")

type sourceStub struct {
	mu           sync.Mutex
	handlers     []Handlers
	unsubscribed int
	err          error
}

func (s *sourceStub) Subscribe(handlers Handlers) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.handlers = append(s.handlers, handlers)
	return &subscriptionStub{source: s}, nil
}

type subscriptionStub struct {
	source *sourceStub
	once   sync.Once
}

func (s *subscriptionStub) Unsubscribe() {
	s.once.Do(func() {
		s.source.mu.Lock()
		s.source.unsubscribed++
		s.source.mu.Unlock()
	})
}

type closeTrackingReader struct {
	data   []byte
	read   bool
	closed bool
}

func (r *closeTrackingReader) Read(p []byte) (int, error) {
	if r.read {
		return 0, io.EOF
	}
	r.read = true
	return copy(p, r.data), nil
}

func (r *closeTrackingReader) Close() error {
	r.closed = true
	return nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("stream reset") }
