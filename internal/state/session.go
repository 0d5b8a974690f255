package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/user/nexuschat/internal/types"
)

// maxTitleChars is the character budget for a session title derived from
// the first user turn.
const maxTitleChars = 30

// SessionStore is a JSON-file-backed store for the full conversation list.
// The whole list is persisted to sessions.json after every mutation, so a
// process crash never loses an acknowledged turn.
type SessionStore struct {
	path string
	mu   sync.RWMutex
}

// NewSessionStore creates a file-backed SessionStore under the given data
// directory.
func NewSessionStore(dataDir string) *SessionStore {
	return &SessionStore{path: filepath.Join(dataDir, "sessions.json")}
}

// AppendTurn appends a user turn and/or an assistant turn to the session.
// An empty id creates a new session at the front of the list and returns its
// id, so both turns of one exchange can target the same session across two
// calls. Empty texts are skipped; the title is set once from the first
// non-empty user text, truncated to maxTitleChars, and never overwritten.
func (s *SessionStore) AppendTurn(_ context.Context, id types.SessionID, userText, assistantText string) (types.SessionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return "", err
	}

	now := time.Now()
	var target *types.Session
	if id == "" {
		target = &types.Session{
			ID:        types.NewSessionID(),
			UpdatedAt: now,
		}
		sessions = append([]*types.Session{target}, sessions...)
	} else {
		for _, sess := range sessions {
			if sess.ID == id {
				target = sess
				break
			}
		}
		if target == nil {
			return "", fmt.Errorf("session not found: %s", id)
		}
	}

	if userText != "" {
		if target.Title == "" {
			target.Title = truncateTitle(userText)
		}
		target.Turns = append(target.Turns, types.Turn{
			ID:        types.NewTurnID(),
			Role:      types.RoleUser,
			Content:   userText,
			Timestamp: now,
		})
	}
	if assistantText != "" {
		target.Turns = append(target.Turns, types.Turn{
			ID:        types.NewTurnID(),
			Role:      types.RoleAssistant,
			Content:   assistantText,
			Timestamp: now,
		})
	}
	target.UpdatedAt = now

	if err := s.save(sessions); err != nil {
		return "", err
	}
	return target.ID, nil
}

// Get returns the session with the given id.
func (s *SessionStore) Get(_ context.Context, id types.SessionID) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if sess.ID == id {
			return sess, nil
		}
	}
	return nil, fmt.Errorf("session not found: %s", id)
}

// List returns all sessions, most recently updated first.
func (s *SessionStore) List(_ context.Context) ([]*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Delete removes the session with the given id.
func (s *SessionStore) Delete(_ context.Context, id types.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return err
	}
	for i, sess := range sessions {
		if sess.ID == id {
			sessions = append(sessions[:i], sessions[i+1:]...)
			return s.save(sessions)
		}
	}
	return fmt.Errorf("session not found: %s", id)
}

func truncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) > maxTitleChars {
		return string(runes[:maxTitleChars])
	}
	return text
}

// load reads the session list. A missing file is an empty list; a malformed
// file is treated as absent (fresh start), not fatal.
func (s *SessionStore) load() ([]*types.Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions file: %w", err)
	}

	var sessions []*types.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, nil
	}
	return sessions, nil
}

// save writes the session list to disk using atomic write (temp file + rename).
func (s *SessionStore) save(sessions []*types.Session) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp sessions file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp sessions file: %w", err)
	}
	return nil
}
