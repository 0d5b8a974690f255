package types

import "github.com/google/uuid"

type SessionID string
type TurnID string

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func NewTurnID() TurnID {
	return TurnID(uuid.New().String())
}
