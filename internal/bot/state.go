package bot

import "sync"

// stateKind labels what text input a chat is expected to send next.
type stateKind int

const (
	stateNone stateKind = iota
	stateAwaitEmail
	stateAwaitFullName
	stateAwaitBroadcast
	stateAwaitUpdateValue
	stateAddEventName
	stateAddEventSchedule
	stateAddEventDescription
	stateAddEventSeats
	stateAwaitSectionBody
	stateAwaitTemplateBody
	stateAwaitNodeContent
)

// chatState carries the partial input of a multi-step flow.
type chatState struct {
	kind stateKind

	// broadcast scope, empty means everyone
	broadcastEventID string

	// pending field update
	updateEventID string
	updateField   string

	// event creation wizard
	draftName        string
	draftSchedule    string
	draftDescription string

	// pending content edit
	contentKey    string
	contentTitle  string
	nodeParentKey string
}

// stateStore tracks per-chat conversation state. Telegram delivers one
// update at a time per chat but the poller may interleave chats.
type stateStore struct {
	mu     sync.Mutex
	states map[int64]chatState
}

func newStateStore() *stateStore {
	return &stateStore{states: make(map[int64]chatState)}
}

func (s *stateStore) get(chatID int64) chatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[chatID]
}

func (s *stateStore) set(chatID int64, state chatState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[chatID] = state
}

func (s *stateStore) clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
}
