package settings

import (
	"fmt"
	"sync"
)

// Store holds the current settings sequence. Replacements swap the whole
// sequence at once, so readers never observe a partial update. While bound,
// replacements that change the channel count are rejected.
type Store struct {
	mu       sync.RWMutex
	channels []Channel
	bound    int
	version  uint64
}

func NewStore(channels []Channel) (*Store, error) {
	if err := Validate(channels); err != nil {
		return nil, err
	}
	return &Store{channels: Clone(channels), version: 1}, nil
}

// Current returns a copy of the current settings.
func (s *Store) Current() []Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Clone(s.channels)
}

// Snapshot returns a copy of the current settings and their version. The
// version increases on every accepted replacement.
func (s *Store) Snapshot() ([]Channel, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Clone(s.channels), s.version
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Bind locks the channel count to n. It fails if the current settings do
// not have n channels.
func (s *Store) Bind(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.channels) != n {
		return fmt.Errorf("%w: have %d, expected %d", ErrChannelCountChanged, len(s.channels), n)
	}
	s.bound = n
	return nil
}

func (s *Store) Unbind() {
	s.mu.Lock()
	s.bound = 0
	s.mu.Unlock()
}

// Replace validates next and swaps it in. Nothing changes on error.
func (s *Store) Replace(next []Channel) error {
	if err := Validate(next); err != nil {
		return err
	}
	next = Clone(next)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound > 0 && len(next) != s.bound {
		return fmt.Errorf("%w: have %d, got %d", ErrChannelCountChanged, s.bound, len(next))
	}
	s.channels = next
	s.version++
	return nil
}
