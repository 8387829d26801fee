package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightly-app/brightly/backend/internal/model/chat"
	"github.com/brightly-app/brightly/backend/internal/model/profile"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
)

func TestRecordMapping(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("IST", 19800))
	tr := chat.Transcript{
		OwnerID:   "u1",
		Tab:       tab.StudyBuddy,
		SessionID: "default",
		Messages: []chat.Message{
			{Role: chat.RoleUser, Content: "What is 2+2?", Timestamp: at.UTC()},
			{Role: chat.RoleAssistant, Content: "4", Timestamp: at.UTC()},
		},
		LastUpdated: at,
	}

	record, err := toRecord(tr)
	require.NoError(t, err)
	assert.Equal(t, "u1_study-buddy_default", record.ID)
	assert.Equal(t, "study-buddy", record.Tab)
	assert.Equal(t, time.UTC, record.LastUpdated.Location())

	back, err := fromRecord(record)
	require.NoError(t, err)
	assert.Equal(t, tr.Messages, back.Messages)
	assert.True(t, back.LastUpdated.Equal(at))
	assert.Equal(t, tr.Key(), back.Key())
}

func TestFromRecordRejectsBadJSON(t *testing.T) {
	_, err := fromRecord(ChatTranscript{ID: "x", Messages: []byte("{")})
	assert.Error(t, err)
}

func TestBackendIntegration(t *testing.T) {
	_ = godotenv.Load("../../../.env")

	dsn := os.Getenv("TEST_DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DB_CONNECTION_STRING not set")
	}

	db, err := Open(dsn)
	require.NoError(t, err)
	backend := NewBackend(db)
	defer backend.Close()

	ctx := context.Background()
	owner := "it-" + uuid.NewString()

	t.Run("transcripts", func(t *testing.T) {
		tr := chat.Transcript{
			OwnerID:     owner,
			Tab:         tab.AskBrightly,
			SessionID:   chat.DefaultSessionID,
			Messages:    []chat.Message{{Role: chat.RoleUser, Content: "Hi", Timestamp: time.Now().UTC()}},
			LastUpdated: time.Now().UTC(),
		}
		require.NoError(t, backend.Transcripts.Put(ctx, tr))
		tr.Messages = append(tr.Messages, chat.Message{Role: chat.RoleAssistant, Content: "Hello!"})
		require.NoError(t, backend.Transcripts.Put(ctx, tr))

		got, ok, err := backend.Transcripts.Get(ctx, tr.Key())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Len(t, got.Messages, 2)

		listed, err := backend.Transcripts.Scan(ctx, chat.Query{OwnerID: owner, Tab: tab.AskBrightly})
		require.NoError(t, err)
		assert.Len(t, listed, 1)

		require.NoError(t, backend.Transcripts.Delete(ctx, tr.Key()))
		_, ok, err = backend.Transcripts.Get(ctx, tr.Key())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("memories", func(t *testing.T) {
		require.NoError(t, backend.Memories.Put(ctx, owner, tab.PassionLab, "A"))
		require.NoError(t, backend.Memories.Put(ctx, owner, tab.PassionLab, "B"))
		note, ok, err := backend.Memories.Get(ctx, owner, tab.PassionLab)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "B", note)
	})

	t.Run("profiles", func(t *testing.T) {
		p := profile.Default(owner)
		require.NoError(t, backend.Profiles.Put(ctx, p))
		got, ok, err := backend.Profiles.Get(ctx, owner)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, p, got)
	})
}
