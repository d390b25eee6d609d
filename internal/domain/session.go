package domain

import "time"

// SessionKey uniquely identifies a conversation session.
// At most one session exists per key at any time.
type SessionKey struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

// String returns a canonical string form of the session key.
func (k SessionKey) String() string {
	return k.ConversationID + ":" + k.UserID
}

// ConversationSession holds the partial state of an in-progress multi-turn
// command. It exists only while the command is incomplete: it is deleted the
// moment the command executes, is cancelled, or expires.
type ConversationSession struct {
	ID        string            `json:"id"`
	Key       SessionKey        `json:"key"`
	Command   string            `json:"command"`
	Params    map[string]string `json:"params,omitempty"`
	Awaiting  string            `json:"awaiting,omitempty"` // parameter currently prompted for
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Expired reports whether the session's idle window has elapsed at the
// given instant.
func (s *ConversationSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
