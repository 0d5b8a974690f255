package types

import "context"

// SessionStore is the durable-persistence contract for conversations.
// AppendTurn with an empty id creates a new session and returns its id so
// the user turn and the assistant turn of one exchange can target the same
// session across two calls.
type SessionStore interface {
	AppendTurn(ctx context.Context, id SessionID, userText, assistantText string) (SessionID, error)
	Get(ctx context.Context, id SessionID) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	Delete(ctx context.Context, id SessionID) error
}
