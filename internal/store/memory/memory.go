// Package memory provides in-process stores, suitable for development and tests.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/brightly-app/brightly/backend/internal/model/chat"
	"github.com/brightly-app/brightly/backend/internal/model/profile"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
	"github.com/brightly-app/brightly/backend/internal/store"
)

// TranscriptStore keeps transcripts in a map keyed by document id.
type TranscriptStore struct {
	mu    sync.RWMutex
	items map[string]chat.Transcript
}

// NewTranscriptStore creates an empty TranscriptStore.
func NewTranscriptStore() *TranscriptStore {
	return &TranscriptStore{items: make(map[string]chat.Transcript)}
}

func (s *TranscriptStore) Get(_ context.Context, key chat.Key) (chat.Transcript, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transcript, ok := s.items[key.DocumentID()]
	if !ok {
		return chat.Transcript{}, false, nil
	}
	return transcript.Clone(), true, nil
}

func (s *TranscriptStore) Put(_ context.Context, transcript chat.Transcript) error {
	s.mu.Lock()
	s.items[transcript.Key().DocumentID()] = transcript.Clone()
	s.mu.Unlock()
	return nil
}

func (s *TranscriptStore) Delete(_ context.Context, key chat.Key) error {
	s.mu.Lock()
	delete(s.items, key.DocumentID())
	s.mu.Unlock()
	return nil
}

func (s *TranscriptStore) Scan(_ context.Context, query chat.Query) ([]chat.Transcript, error) {
	prefix := query.Prefix()

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]chat.Transcript, 0)
	for id, transcript := range s.items {
		if strings.HasPrefix(id, prefix) && query.Matches(transcript) {
			result = append(result, transcript.Clone())
		}
	}
	return result, nil
}

type memoryKey struct {
	ownerID string
	tab     tab.ID
}

// MemoryStore keeps one note per (owner, tab).
type MemoryStore struct {
	mu    sync.RWMutex
	notes map[memoryKey]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{notes: make(map[memoryKey]string)}
}

func (s *MemoryStore) Get(_ context.Context, ownerID string, t tab.ID) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.notes[memoryKey{ownerID: ownerID, tab: t}]
	return note, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, ownerID string, t tab.ID, note string) error {
	s.mu.Lock()
	s.notes[memoryKey{ownerID: ownerID, tab: t}] = note
	s.mu.Unlock()
	return nil
}

// ProfileStore keeps profiles by owner id.
type ProfileStore struct {
	mu    sync.RWMutex
	items map[string]profile.Profile
}

// NewProfileStore creates a ProfileStore preloaded with the supplied profiles.
func NewProfileStore(items ...profile.Profile) *ProfileStore {
	s := &ProfileStore{items: make(map[string]profile.Profile, len(items))}
	for _, p := range items {
		s.items[p.OwnerID] = p
	}
	return s
}

func (s *ProfileStore) Get(_ context.Context, ownerID string) (profile.Profile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[ownerID]
	if ok {
		p.HiddenTabs = append([]string(nil), p.HiddenTabs...)
	}
	return p, ok, nil
}

func (s *ProfileStore) Put(_ context.Context, p profile.Profile) error {
	p.HiddenTabs = append([]string(nil), p.HiddenTabs...)
	s.mu.Lock()
	s.items[p.OwnerID] = p
	s.mu.Unlock()
	return nil
}

// NewBackend bundles fresh in-memory stores.
func NewBackend() store.Backend {
	return store.Backend{
		Name:        "memory",
		Transcripts: NewTranscriptStore(),
		Memories:    NewMemoryStore(),
		Profiles:    NewProfileStore(),
		Close:       func() error { return nil },
	}
}
