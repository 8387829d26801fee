// Package redis stores transcripts as JSON documents and keeps profiles and
// memory notes as fields of a per-owner hash.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/brightly-app/brightly/backend/internal/model/chat"
	"github.com/brightly-app/brightly/backend/internal/model/profile"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
	"github.com/brightly-app/brightly/backend/internal/store"
)

const (
	chatKeyPrefix     = "chats:"
	userKeyPrefix     = "users:"
	profileField      = "profile"
	memoryFieldPrefix = "tab_memory:"
	scanBatchSize     = 100
)

// Connect parses url and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[redis] failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// NewBackend wraps a connected client.
func NewBackend(rdb *redis.Client) store.Backend {
	return store.Backend{
		Name:        "redis",
		Transcripts: &TranscriptStore{rdb: rdb},
		Memories:    &MemoryStore{rdb: rdb},
		Profiles:    &ProfileStore{rdb: rdb},
		Close:       rdb.Close,
	}
}

func chatKey(id string) string {
	return chatKeyPrefix + id
}

func userKey(ownerID string) string {
	return userKeyPrefix + ownerID
}

func memoryField(t tab.ID) string {
	return memoryFieldPrefix + string(t)
}

// TranscriptStore implements store.TranscriptStore.
type TranscriptStore struct {
	rdb *redis.Client
}

func (s *TranscriptStore) Get(ctx context.Context, key chat.Key) (chat.Transcript, bool, error) {
	raw, err := s.rdb.Get(ctx, chatKey(key.DocumentID())).Bytes()
	if errors.Is(err, redis.Nil) {
		return chat.Transcript{}, false, nil
	}
	if err != nil {
		return chat.Transcript{}, false, fmt.Errorf("failed to get transcript: %w", err)
	}

	var t chat.Transcript
	if err := json.Unmarshal(raw, &t); err != nil {
		return chat.Transcript{}, false, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return t, true, nil
}

func (s *TranscriptStore) Put(ctx context.Context, transcript chat.Transcript) error {
	raw, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	if err := s.rdb.Set(ctx, chatKey(transcript.Key().DocumentID()), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to put transcript: %w", err)
	}
	return nil
}

func (s *TranscriptStore) Delete(ctx context.Context, key chat.Key) error {
	if err := s.rdb.Del(ctx, chatKey(key.DocumentID())).Err(); err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}

func (s *TranscriptStore) Scan(ctx context.Context, query chat.Query) ([]chat.Transcript, error) {
	pattern := store.GlobPrefix(chatKey(query.Prefix()))
	iter := s.rdb.Scan(ctx, 0, pattern, scanBatchSize).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan transcripts: %w", err)
	}

	result := make([]chat.Transcript, 0, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load transcripts: %w", err)
	}
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			// deleted between SCAN and MGET
			continue
		}
		var t chat.Transcript
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("failed to decode transcript: %w", err)
		}
		if query.Matches(t) {
			result = append(result, t)
		}
	}
	return result, nil
}

// MemoryStore implements store.MemoryStore.
type MemoryStore struct {
	rdb *redis.Client
}

func (s *MemoryStore) Get(ctx context.Context, ownerID string, t tab.ID) (string, bool, error) {
	note, err := s.rdb.HGet(ctx, userKey(ownerID), memoryField(t)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get memory note: %w", err)
	}
	return note, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, ownerID string, t tab.ID, note string) error {
	if err := s.rdb.HSet(ctx, userKey(ownerID), memoryField(t), note).Err(); err != nil {
		return fmt.Errorf("failed to put memory note: %w", err)
	}
	return nil
}

// ProfileStore implements profile.Store.
type ProfileStore struct {
	rdb *redis.Client
}

func (s *ProfileStore) Get(ctx context.Context, ownerID string) (profile.Profile, bool, error) {
	raw, err := s.rdb.HGet(ctx, userKey(ownerID), profileField).Bytes()
	if errors.Is(err, redis.Nil) {
		return profile.Profile{}, false, nil
	}
	if err != nil {
		return profile.Profile{}, false, fmt.Errorf("failed to get profile: %w", err)
	}

	var p profile.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return profile.Profile{}, false, fmt.Errorf("failed to decode profile: %w", err)
	}
	return p, true, nil
}

func (s *ProfileStore) Put(ctx context.Context, p profile.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.rdb.HSet(ctx, userKey(p.OwnerID), profileField, raw).Err(); err != nil {
		return fmt.Errorf("failed to put profile: %w", err)
	}
	return nil
}
