package orchestration

import (
	"slices"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-ivr/core/events"
	"github.com/koscakluka/ema-ivr/core/notifications"
)

// MenuOption is a main menu selection, identified by its key.
type MenuOption string

const (
	MenuOptionNone    MenuOption = ""
	MenuOptionSupport MenuOption = "2"

	mainMenuOptions = 5
)

type CallState string

const (
	CallStateStarted       CallState = "started"
	CallStateMenuPresented CallState = "menu_presented"
	CallStateRecording     CallState = "recording"
)

// Call is the state kept for one active call, from the incoming call until
// its recording completes.
type Call struct {
	ID           string
	ChosenOption MenuOption
	Participants []events.Participant
	State        CallState

	// WelcomeOperationID identifies the welcome prompt, so only its
	// completion presents the main menu.
	WelcomeOperationID string
	// Target addresses notifications about this call.
	Target *notifications.Target
}

type callRegistry struct {
	mu    sync.RWMutex
	calls map[string]*Call
}

func newCallRegistry() *callRegistry {
	return &callRegistry{calls: map[string]*Call{}}
}

// add stores call, replacing and reporting any call with the same id.
func (r *callRegistry) add(call *Call) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced = r.calls[call.ID]
	r.calls[call.ID] = call
	return replaced
}

// update applies fn to the stored call under the registry lock.
func (r *callRegistry) update(id string, fn func(*Call)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[id]
	if !ok {
		return false
	}
	fn(call)
	return true
}

// get returns a deep copy that callers may use without holding the lock.
func (r *callRegistry) get(id string) (Call, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	call, ok := r.calls[id]
	if !ok {
		return Call{}, false
	}
	return snapshot(call), true
}

// lookup is like get but also returns the stored call, for use with
// removeIf.
func (r *callRegistry) lookup(id string) (Call, *Call, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	call, ok := r.calls[id]
	if !ok {
		return Call{}, nil, false
	}
	return snapshot(call), call, true
}

// removeIf removes the call stored under id only if it is still call.
func (r *callRegistry) removeIf(id string, call *Call) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stored, ok := r.calls[id]; !ok || stored != call {
		return false
	}
	delete(r.calls, id)
	return true
}

func (r *callRegistry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.calls[id]
	delete(r.calls, id)
	return ok
}

func (r *callRegistry) ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.calls))
	for id := range r.calls {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func snapshot(call *Call) Call {
	var copied Call
	if err := copier.CopyWithOption(&copied, call, copier.Option{DeepCopy: true}); err != nil {
		logger.Error("failed to copy call state", "call.id", call.ID, "error", err)
		copied = *call
		copied.Participants = slices.Clone(call.Participants)
	}
	return copied
}
