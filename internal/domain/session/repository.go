package session

import "context"

// Store defines ephemeral session storage. The transport serializes actions
// per conversation, so a Get / mutate / Save sequence for one conversation
// never races with itself; implementations only need to be safe across
// conversations.
type Store interface {
	// Get returns (nil, nil) when no session exists; a missing session is
	// "no session", never an error.
	Get(ctx context.Context, conversationID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
	// Update applies the mutator to the stored session, creating a fresh
	// root session when none exists.
	Update(ctx context.Context, conversationID int64, fn func(*Session)) (*Session, error)
	Reset(ctx context.Context, conversationID int64) error
}
