package client

import "sync"

// ActiveConversation is the session's answer to "which conversation is on screen", at most one at a time.
// It also remembers the messages received while active whose read has not been stored yet.
type ActiveConversation struct {
	mu      sync.Mutex
	id      string
	pending map[string]struct{}
	dirty   bool // the read issued on activation did not go through
}

func (a *ActiveConversation) Get() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id
}

// Is reports whether conversationID is the active one
func (a *ActiveConversation) Is(conversationID string) bool {
	return conversationID != "" && a.Get() == conversationID
}

func (a *ActiveConversation) set(conversationID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.id = conversationID
	a.pending = make(map[string]struct{})
	a.dirty = false
}

func (a *ActiveConversation) clear() {
	a.set("")
}

// addPending records msgID as seen but not yet stored as read, false if conversationID is no longer active
func (a *ActiveConversation) addPending(conversationID, msgID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.id == "" || a.id != conversationID {
		return false
	}
	a.pending[msgID] = struct{}{}
	return true
}

func (a *ActiveConversation) resolve(msgID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pending, msgID)
}

func (a *ActiveConversation) markDirty() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dirty = true
}

// needsFlush reports whether leaving the conversation requires a final read
func (a *ActiveConversation) needsFlush() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id != "" && (len(a.pending) > 0 || a.dirty)
}
