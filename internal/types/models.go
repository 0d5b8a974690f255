package types

import "time"

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message within a session. Turns are immutable once
// appended; a user turn and its assistant reply are appended as a pair.
type Turn struct {
	ID        TurnID    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is an ordered conversation. The title is derived from the first
// non-empty user turn and never changes afterwards.
type Session struct {
	ID        SessionID `json:"id"`
	Title     string    `json:"title"`
	Turns     []Turn    `json:"turns"`
	UpdatedAt time.Time `json:"updated_at"`
}
