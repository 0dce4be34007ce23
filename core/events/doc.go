// Package events defines the typed telephony event contract delivered by the
// transport to the call orchestrator.
//
// Every event carries the call identifier assigned by the transport at call
// start. Events for one call arrive in order; events for different calls
// may arrive concurrently.
//
// call events
//
//   - IncomingCall (call.incoming): a call was offered; carries the
//     participants captured at call start.
//   - PromptCompleted (call.prompt_completed): a play-prompt action finished.
//   - RecognizeCompleted (call.recognize_completed): a menu recognition
//     finished; carries the chosen option on success.
//   - RecordCompleted (call.record_completed): a recording finished; carries
//     the recorded audio on success.
//   - HangupCompleted (call.hangup_completed): the call was hung up.
//
// Events that can be answered with a workflow carry the continuation Links
// the transport proposes for it.
package events
