// Package store provides keyed, expiring storage for in-progress
// multi-turn command sessions. Two backends exist: an in-memory map
// (default) and SQLite, which makes dialogs survive process restarts.
package store

import (
	"errors"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
)

// ErrExpired is returned when a session exists but its idle window has
// elapsed. The caller must treat the session as gone; the store has
// already removed it.
var ErrExpired = errors.New("session expired")

// SessionStore is keyed, expiring session storage.
//
// Get returns (nil, nil) when no session exists for the key, and
// (nil, ErrExpired) when one existed but had expired, never stale
// partial state. Implementations must be safe for concurrent use from
// different conversations; serialization of access to a single key is
// the engine's responsibility.
type SessionStore interface {
	Get(key domain.SessionKey) (*domain.ConversationSession, error)
	Put(sess *domain.ConversationSession) error
	Delete(key domain.SessionKey) error
}
