// Package store declares the persistence contracts of the chat core. Backends
// live in the sub-packages.
package store

import (
	"context"

	"github.com/brightly-app/brightly/backend/internal/model/chat"
	"github.com/brightly-app/brightly/backend/internal/model/profile"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
)

// TranscriptStore persists chat transcripts keyed by (owner, tab, session).
// A missing transcript is reported through the boolean, never as an error.
type TranscriptStore interface {
	Get(ctx context.Context, key chat.Key) (chat.Transcript, bool, error)
	// Put replaces the whole transcript stored under its key.
	Put(ctx context.Context, transcript chat.Transcript) error
	// Delete removes the transcript; deleting an absent key succeeds.
	Delete(ctx context.Context, key chat.Key) error
	// Scan returns every transcript selected by the query, in no particular order.
	Scan(ctx context.Context, query chat.Query) ([]chat.Transcript, error)
}

// MemoryStore keeps a single memory note per (owner, tab). Put overwrites.
type MemoryStore interface {
	Get(ctx context.Context, ownerID string, t tab.ID) (string, bool, error)
	Put(ctx context.Context, ownerID string, t tab.ID, note string) error
}

// Backend bundles the stores of one storage engine.
type Backend struct {
	Name        string
	Transcripts TranscriptStore
	Memories    MemoryStore
	Profiles    profile.Store
	Close       func() error
}
