// Package workflow describes the instructions handed back to the telephony
// transport after each call event, and builds the prompts and menus the
// call flow is made of.
package workflow

// Links is the continuation metadata the transport attaches to a workflow.
// A workflow without links tells the transport that no further events are
// expected for the call.
type Links struct {
	Callback string `json:"callback,omitempty"`
}

// Workflow is the ordered list of actions the transport executes next for
// one call.
type Workflow struct {
	Actions  []Action `json:"actions"`
	Links    *Links   `json:"links,omitempty"`
	AppState string   `json:"appState,omitempty"`
}

// Kinds lists the kinds of the workflow's actions in order.
func (w *Workflow) Kinds() []ActionKind {
	if w == nil {
		return nil
	}

	kinds := make([]ActionKind, 0, len(w.Actions))
	for _, action := range w.Actions {
		kinds = append(kinds, action.Kind())
	}
	return kinds
}
