package greetd

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no greeting is stored for a language.
var ErrNotFound = errors.New("greetd: greeting not found")

// Store holds greetings keyed by language tag.
type Store interface {
	// Get returns the greeting for the language, or ErrNotFound.
	Get(ctx context.Context, lang string) (string, error)

	// Set stores the greeting for the language, replacing any previous one.
	Set(ctx context.Context, lang, greeting string) error

	// Delete removes the greeting for the language. Deleting an absent
	// language is not an error.
	Delete(ctx context.Context, lang string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases store resources.
	Close() error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu        sync.RWMutex
	greetings map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		greetings: make(map[string]string),
	}
}

// Get returns the greeting for the language, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, lang string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	greeting, ok := s.greetings[lang]
	if !ok {
		return "", ErrNotFound
	}
	return greeting, nil
}

// Set stores the greeting for the language.
func (s *MemoryStore) Set(_ context.Context, lang, greeting string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.greetings[lang] = greeting
	return nil
}

// Delete removes the greeting for the language.
func (s *MemoryStore) Delete(_ context.Context, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.greetings, lang)
	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
