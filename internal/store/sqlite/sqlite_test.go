package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightly-app/brightly/backend/internal/model/chat"
	"github.com/brightly-app/brightly/backend/internal/model/profile"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
	"github.com/brightly-app/brightly/backend/internal/store"
	"github.com/brightly-app/brightly/backend/internal/store/sqlite"
)

func openBackend(t *testing.T) store.Backend {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "nested", "brightly.db"))
	require.NoError(t, err)
	backend := db.Backend()
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func transcript(owner string, t tab.ID, session string, at time.Time) chat.Transcript {
	return chat.Transcript{
		OwnerID:   owner,
		Tab:       t,
		SessionID: session,
		Messages: []chat.Message{
			{Role: chat.RoleUser, Content: "Hi", Timestamp: at},
			{Role: chat.RoleAssistant, Content: "Hello!", Timestamp: at},
		},
		LastUpdated: at,
	}
}

func TestTranscriptStore(t *testing.T) {
	ctx := context.Background()
	backend := openBackend(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tr := transcript("u1", tab.AskBrightly, chat.DefaultSessionID, at)
	_, ok, err := backend.Transcripts.Get(ctx, tr.Key())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Transcripts.Put(ctx, tr))

	tr.Messages = append(tr.Messages, chat.Message{Role: chat.RoleUser, Content: "again", Timestamp: at.Add(time.Minute)})
	tr.LastUpdated = at.Add(time.Minute)
	require.NoError(t, backend.Transcripts.Put(ctx, tr))

	got, ok, err := backend.Transcripts.Get(ctx, tr.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got.Messages, 3)
	assert.Equal(t, "again", got.Messages[2].Content)
	assert.True(t, got.LastUpdated.Equal(at.Add(time.Minute)))
	assert.Equal(t, tab.AskBrightly, got.Tab)

	require.NoError(t, backend.Transcripts.Delete(ctx, tr.Key()))
	_, ok, err = backend.Transcripts.Get(ctx, tr.Key())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTranscriptScanUsesLiteralPrefix(t *testing.T) {
	ctx := context.Background()
	backend := openBackend(t)
	at := time.Now().UTC()

	require.NoError(t, backend.Transcripts.Put(ctx, transcript("u1", tab.AskBrightly, "default", at)))
	require.NoError(t, backend.Transcripts.Put(ctx, transcript("u1", tab.AskBrightly, "1700000000000", at)))
	require.NoError(t, backend.Transcripts.Put(ctx, transcript("u1", tab.StudyBuddy, "default", at)))
	require.NoError(t, backend.Transcripts.Put(ctx, transcript("uX", tab.AskBrightly, "default", at)))
	require.NoError(t, backend.Transcripts.Put(ctx, transcript("u1_ask-brightly", tab.AskBrightly, "x", at)))

	byTab, err := backend.Transcripts.Scan(ctx, chat.Query{OwnerID: "u1", Tab: tab.AskBrightly})
	require.NoError(t, err)
	assert.Len(t, byTab, 2)

	byOwner, err := backend.Transcripts.Scan(ctx, chat.Query{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Len(t, byOwner, 3)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	backend := openBackend(t)

	require.NoError(t, backend.Memories.Put(ctx, "u1", tab.PassionLab, "first"))
	require.NoError(t, backend.Memories.Put(ctx, "u1", tab.PassionLab, "second"))

	note, ok, err := backend.Memories.Get(ctx, "u1", tab.PassionLab)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", note)

	_, ok, err = backend.Memories.Get(ctx, "u1", tab.AskBrightly)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProfileStore(t *testing.T) {
	ctx := context.Background()
	backend := openBackend(t)

	_, ok, err := backend.Profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	p := profile.Default("u1")
	p.Age = 16
	p.HiddenTabs = []string{string(tab.BloomingDays)}
	require.NoError(t, backend.Profiles.Put(ctx, p))

	got, ok, err := backend.Profiles.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, got)
}
