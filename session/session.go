// Package session persists conversation history, one JSON file per
// conversation, with a sliding window so transcripts stay bounded on disk.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/opsclaw/opsclaw/errors"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultWindow caps how many messages a conversation retains. Older
// messages fall off the front; the agent's context governor handles any
// remaining overflow at prompt-build time.
const DefaultWindow = 40

// Message is a single conversation turn. Messages are immutable once stored;
// the agent consumes history read-only.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the on-disk shape of one conversation.
type Conversation struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// Store keeps conversations as JSON files under dir. It is safe for
// concurrent use across unrelated conversations.
type Store struct {
	dir    string
	window int
	mu     sync.Mutex
}

// NewStore creates the storage directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create session directory %s", dir)
	}
	return &Store{dir: dir, window: DefaultWindow}, nil
}

// History returns the stored messages for a conversation. A conversation
// that has never been written yields an empty history, not an error.
func (s *Store) History(id string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return conv.Messages, nil
}

// Append records a completed exchange and trims to the window.
func (s *Store) Append(id string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.load(id)
	if err != nil {
		return err
	}
	conv.Messages = append(conv.Messages, msgs...)
	if len(conv.Messages) > s.window {
		conv.Messages = conv.Messages[len(conv.Messages)-s.window:]
	}
	return s.save(conv)
}

// Reset discards a conversation's history.
func (s *Store) Reset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "could not reset conversation %s", id)
	}
	return nil
}

func (s *Store) load(id string) (*Conversation, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return &Conversation{ID: id}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read conversation %s", id)
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, errors.Wrapf(err, "could not parse conversation %s", id)
	}
	return &conv, nil
}

func (s *Store) save(conv *Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to serialize conversation %s", conv.ID)
	}
	return os.WriteFile(s.path(conv.ID), data, 0o644)
}

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// path maps a conversation id to its file, sanitizing anything that could
// escape the storage directory.
func (s *Store) path(id string) string {
	safe := unsafeIDChars.ReplaceAllString(id, "_")
	return filepath.Join(s.dir, safe+".json")
}
