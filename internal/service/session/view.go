package session

import (
	"sync"

	"github.com/brightly-app/brightly/backend/internal/model/chat"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
)

// State is the lifecycle position of a conversation view.
type State string

const (
	StateIdle            State = "idle"
	StateLoaded          State = "loaded"
	StateSending         State = "sending"
	StateLoadedWithError State = "loaded_with_error"
)

// Snapshot is a copy of a view handed to callers.
type Snapshot struct {
	OwnerID   string         `json:"ownerId"`
	Tab       tab.ID         `json:"tabType"`
	SessionID string         `json:"sessionId"`
	State     State          `json:"state"`
	Messages  []chat.Message `json:"messages"`
	Error     string         `json:"error,omitempty"`
}

// view is the visible conversation of one (owner, tab). At most one send is
// in flight per view.
type view struct {
	mu        sync.Mutex
	ownerID   string
	tab       tab.ID
	sessionID string
	state     State
	messages  []chat.Message
	// synced is false until messages are known to extend what the store
	// holds for sessionID.
	synced  bool
	errText string
}

func newView(ownerID string, t tab.ID) *view {
	return &view{ownerID: ownerID, tab: t, sessionID: chat.DefaultSessionID, state: StateIdle}
}

func (v *view) snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *view) snapshotLocked() Snapshot {
	messages := chat.CloneMessages(v.messages)
	if messages == nil {
		messages = []chat.Message{}
	}
	return Snapshot{
		OwnerID:   v.ownerID,
		Tab:       v.tab,
		SessionID: v.sessionID,
		State:     v.state,
		Messages:  messages,
		Error:     v.errText,
	}
}

// beginSend reserves the view for a send and reports what it currently shows.
func (v *view) beginSend() (sessionID string, messages []chat.Message, synced bool, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateSending {
		return "", nil, false, ErrSendInFlight
	}
	v.state = StateSending
	return v.sessionID, chat.CloneMessages(v.messages), v.synced, nil
}

// replace shows messages for sessionID unless a send is in flight.
func (v *view) replace(sessionID string, messages []chat.Message) (Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateSending {
		return v.snapshotLocked(), ErrSendInFlight
	}
	v.setLocked(sessionID, messages)
	return v.snapshotLocked(), nil
}

func (v *view) setLocked(sessionID string, messages []chat.Message) {
	v.sessionID = sessionID
	v.messages = chat.CloneMessages(messages)
	v.synced = true
	v.state = StateLoaded
	v.errText = ""
}

// stage shows the pending user message while the send is in flight.
func (v *view) stage(sessionID string, messages []chat.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sessionID = sessionID
	v.messages = chat.CloneMessages(messages)
	v.errText = ""
}

func (v *view) fail(sessionID string, messages []chat.Message, synced bool, errText string) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sessionID = sessionID
	v.messages = chat.CloneMessages(messages)
	v.synced = synced
	v.state = StateLoadedWithError
	v.errText = errText
	return v.snapshotLocked()
}

func (v *view) commit(sessionID string, messages []chat.Message) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setLocked(sessionID, messages)
	return v.snapshotLocked()
}
