// Package httpapi receives call events from a telephony transport over HTTP
// and answers each with the next workflow as JSON.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	orchestration "github.com/koscakluka/ema-ivr/core"
)

const DefaultMaxRecordingBytes = 32 << 20

var (
	ErrHandlersRegistered = errors.New("handlers are already registered")
	ErrIncompleteHandlers  = errors.New("every call event needs a handler")
)

// Server is an orchestration.EventSource fed by HTTP requests. Requests
// arriving while no handlers are registered are answered with 503.
type Server struct {
	mu         sync.RWMutex
	handlers   *orchestration.Handlers
	generation uint64

	maxBodyBytes int64
}

type Option func(*Server)

// WithMaxRecordingBytes limits the size of request bodies, which for record
// completions carry the encoded recording.
func WithMaxRecordingBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

func NewServer(opts ...Option) *Server {
	s := &Server{maxBodyBytes: DefaultMaxRecordingBytes}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Subscribe(handlers orchestration.Handlers) (orchestration.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handlers != nil {
		return nil, ErrHandlersRegistered
	}
	if handlers.OnIncomingCall == nil || handlers.OnPromptCompleted == nil ||
		handlers.OnRecognizeCompleted == nil || handlers.OnRecordCompleted == nil ||
		handlers.OnHangupCompleted == nil {
		return nil, ErrIncompleteHandlers
	}
	s.generation++
	s.handlers = &handlers
	logger.Info("handlers registered", "handlers.name", handlers.Name)

	return &subscription{server: s, generation: s.generation}, nil
}

type subscription struct {
	server     *Server
	generation uint64
	once       sync.Once
}

func (sub *subscription) Unsubscribe() {
	sub.once.Do(func() {
		s := sub.server
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.generation == sub.generation && s.handlers != nil {
			logger.Info("handlers unregistered", "handlers.name", s.handlers.Name)
			s.handlers = nil
		}
	})
}

func (s *Server) currentHandlers() (orchestration.Handlers, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.handlers == nil {
		return orchestration.Handlers{}, false
	}
	return *s.handlers, true
}

// Handler returns the instrumented HTTP handler serving the call routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("POST /calls", s.incomingCall)
	mux.HandleFunc("POST /calls/{callID}/prompt-completed", s.promptCompleted)
	mux.HandleFunc("POST /calls/{callID}/recognize-completed", s.recognizeCompleted)
	mux.HandleFunc("POST /calls/{callID}/record-completed", s.recordCompleted)
	mux.HandleFunc("POST /calls/{callID}/hangup-completed", s.hangupCompleted)

	return otelhttp.NewHandler(mux, "ivr-transport")
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, ok := s.currentHandlers(); !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no handlers\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
