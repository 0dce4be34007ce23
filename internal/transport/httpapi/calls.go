package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	orchestration "github.com/koscakluka/ema-ivr/core"
	"github.com/koscakluka/ema-ivr/core/events"
	"github.com/koscakluka/ema-ivr/core/workflow"
)

type incomingCallRequest struct {
	CallID       string               `json:"callId"`
	Participants []events.Participant `json:"participants"`
	Links        *workflow.Links      `json:"links,omitempty"`
}

type completionRequest struct {
	OperationID string          `json:"operationId,omitempty"`
	Outcome     events.Outcome  `json:"outcome"`
	Links       *workflow.Links `json:"links,omitempty"`
}

type recognizeCompletedRequest struct {
	completionRequest
	ChoiceName string `json:"choiceName,omitempty"`
}

type recordCompletedRequest struct {
	completionRequest
	// Recording is base64 encoded in JSON.
	Recording []byte `json:"recording,omitempty"`
}

func (s *Server) incomingCall(w http.ResponseWriter, r *http.Request) {
	handlers, ok := s.requireHandlers(w)
	if !ok {
		return
	}

	var req incomingCallRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.CallID == "" {
		writeError(w, http.StatusBadRequest, "callId is required")
		return
	}

	event := events.NewIncomingCall(req.CallID, req.Participants, req.Links)
	writeWorkflow(w, handlers.OnIncomingCall(r.Context(), event))
}

func (s *Server) promptCompleted(w http.ResponseWriter, r *http.Request) {
	handlers, ok := s.requireHandlers(w)
	if !ok {
		return
	}

	var req completionRequest
	if !s.decodeCompletion(w, r, &req, &req) {
		return
	}

	event := events.NewPromptCompleted(r.PathValue("callID"), req.OperationID, req.Outcome, req.Links)
	writeWorkflow(w, handlers.OnPromptCompleted(r.Context(), event))
}

func (s *Server) recognizeCompleted(w http.ResponseWriter, r *http.Request) {
	handlers, ok := s.requireHandlers(w)
	if !ok {
		return
	}

	var req recognizeCompletedRequest
	if !s.decodeCompletion(w, r, &req, &req.completionRequest) {
		return
	}

	event := events.NewRecognizeCompleted(r.PathValue("callID"), req.OperationID, req.Outcome, req.ChoiceName, req.Links)
	writeWorkflow(w, handlers.OnRecognizeCompleted(r.Context(), event))
}

func (s *Server) recordCompleted(w http.ResponseWriter, r *http.Request) {
	handlers, ok := s.requireHandlers(w)
	if !ok {
		return
	}

	var req recordCompletedRequest
	if !s.decodeCompletion(w, r, &req, &req.completionRequest) {
		return
	}

	event := events.NewRecordCompleted(r.PathValue("callID"), req.OperationID, req.Outcome, bytes.NewReader(req.Recording))
	writeWorkflow(w, handlers.OnRecordCompleted(r.Context(), event))
}

func (s *Server) hangupCompleted(w http.ResponseWriter, r *http.Request) {
	handlers, ok := s.requireHandlers(w)
	if !ok {
		return
	}

	var req completionRequest
	if !s.decodeCompletion(w, r, &req, &req) {
		return
	}

	event := events.NewHangupCompleted(r.PathValue("callID"), req.OperationID, req.Outcome)
	writeWorkflow(w, handlers.OnHangupCompleted(r.Context(), event))
}

func (s *Server) requireHandlers(w http.ResponseWriter) (orchestration.Handlers, bool) {
	handlers, ok := s.currentHandlers()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no handlers registered")
	}
	return handlers, ok
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.WarnContext(r.Context(), "invalid request body", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) decodeCompletion(w http.ResponseWriter, r *http.Request, v any, completion *completionRequest) bool {
	if !s.decode(w, r, v) {
		return false
	}
	switch completion.Outcome {
	case events.OutcomeSuccess, events.OutcomeFailure:
		return true
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown outcome %q", completion.Outcome))
		return false
	}
}

func writeWorkflow(w http.ResponseWriter, wf *workflow.Workflow) {
	if wf == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}
