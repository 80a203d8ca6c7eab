// Package session tracks, per Telegram user, an accepted photo that is
// waiting for a text prompt. At most one session exists per user.
package session

import (
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// Session parks a validated image until the user's next text message.
// AwaitingPrompt is true for the whole lifetime of the entry.
type Session struct {
	ImagePath      string
	AwaitingPrompt bool
}

// Store is safe for concurrent use; updates for different users are handled
// on separate goroutines.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

func NewStore() *Store {
	return &Store{sessions: map[int64]Session{}}
}

// Put parks an image for the user. An existing session is superseded and its
// image file released: a new photo replaces the pending one.
func (s *Store) Put(userID int64, imagePath string) {
	s.mu.Lock()
	prev, had := s.sessions[userID]
	s.sessions[userID] = Session{ImagePath: imagePath, AwaitingPrompt: true}
	s.mu.Unlock()

	if had {
		releaseImage(prev.ImagePath)
	}
}

// Get returns the user's session without consuming it.
func (s *Store) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Claim removes and returns the session in one step. The caller takes
// ownership of the image file.
func (s *Store) Claim(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if ok {
		delete(s.sessions, userID)
	}
	return sess, ok
}

// Remove drops the session and releases its image file.
func (s *Store) Remove(userID int64) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	if ok {
		releaseImage(sess.ImagePath)
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func releaseImage(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove session image")
	}
}
