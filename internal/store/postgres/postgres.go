// Package postgres stores transcripts, memory notes and profiles through gorm.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/brightly-app/brightly/backend/internal/model/chat"
	"github.com/brightly-app/brightly/backend/internal/model/profile"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
	"github.com/brightly-app/brightly/backend/internal/store"
)

// ChatTranscript is the row of one persisted conversation.
type ChatTranscript struct {
	ID          string         `gorm:"primaryKey;type:text"`
	OwnerID     string         `gorm:"not null;index:idx_chat_transcripts_owner_tab"`
	Tab         string         `gorm:"not null;index:idx_chat_transcripts_owner_tab"`
	SessionID   string         `gorm:"not null"`
	Messages    datatypes.JSON `gorm:"type:jsonb;not null"`
	LastUpdated time.Time      `gorm:"not null"`
}

// TabMemory is the row of one memory note.
type TabMemory struct {
	OwnerID   string `gorm:"primaryKey"`
	Tab       string `gorm:"primaryKey"`
	Note      string `gorm:"not null"`
	UpdatedAt time.Time
}

// ProfileRecord stores the profile document of an owner.
type ProfileRecord struct {
	OwnerID   string         `gorm:"primaryKey"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (ProfileRecord) TableName() string {
	return "profiles"
}

func getLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  true,
		},
	)
}

func configureConnectionPool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return nil
}

// Open connects to PostgreSQL and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: getLogger(),
	})
	if err != nil {
		return nil, err
	}

	if err := configureConnectionPool(db); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&ChatTranscript{}, &TabMemory{}, &ProfileRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}

// NewBackend wraps an open gorm handle.
func NewBackend(db *gorm.DB) store.Backend {
	return store.Backend{
		Name:        "postgres",
		Transcripts: &TranscriptStore{db: db},
		Memories:    &MemoryStore{db: db},
		Profiles:    &ProfileStore{db: db},
		Close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

// toRecord maps a transcript onto its row.
func toRecord(t chat.Transcript) (ChatTranscript, error) {
	messages, err := json.Marshal(t.Messages)
	if err != nil {
		return ChatTranscript{}, fmt.Errorf("failed to encode messages: %w", err)
	}
	return ChatTranscript{
		ID:          t.Key().DocumentID(),
		OwnerID:     t.OwnerID,
		Tab:         string(t.Tab),
		SessionID:   t.SessionID,
		Messages:    datatypes.JSON(messages),
		LastUpdated: t.LastUpdated.UTC(),
	}, nil
}

func fromRecord(r ChatTranscript) (chat.Transcript, error) {
	t := chat.Transcript{
		OwnerID:     r.OwnerID,
		Tab:         tab.ID(r.Tab),
		SessionID:   r.SessionID,
		LastUpdated: r.LastUpdated.UTC(),
	}
	if err := json.Unmarshal(r.Messages, &t.Messages); err != nil {
		return chat.Transcript{}, fmt.Errorf("failed to decode messages: %w", err)
	}
	return t, nil
}

// TranscriptStore implements store.TranscriptStore.
type TranscriptStore struct {
	db *gorm.DB
}

func (s *TranscriptStore) Get(ctx context.Context, key chat.Key) (chat.Transcript, bool, error) {
	var record ChatTranscript
	err := s.db.WithContext(ctx).Where("id = ?", key.DocumentID()).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chat.Transcript{}, false, nil
	}
	if err != nil {
		return chat.Transcript{}, false, fmt.Errorf("failed to get transcript: %w", err)
	}

	t, err := fromRecord(record)
	if err != nil {
		return chat.Transcript{}, false, err
	}
	return t, true, nil
}

func (s *TranscriptStore) Put(ctx context.Context, transcript chat.Transcript) error {
	record, err := toRecord(transcript)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"messages", "last_updated"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to put transcript: %w", err)
	}
	return nil
}

func (s *TranscriptStore) Delete(ctx context.Context, key chat.Key) error {
	if err := s.db.WithContext(ctx).Where("id = ?", key.DocumentID()).Delete(&ChatTranscript{}).Error; err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}

func (s *TranscriptStore) Scan(ctx context.Context, query chat.Query) ([]chat.Transcript, error) {
	var records []ChatTranscript
	err := s.db.WithContext(ctx).
		Where(`id LIKE ? ESCAPE '\' AND owner_id = ?`, store.LikePrefix(query.Prefix()), query.OwnerID).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan transcripts: %w", err)
	}

	result := make([]chat.Transcript, 0, len(records))
	for _, record := range records {
		t, err := fromRecord(record)
		if err != nil {
			return nil, err
		}
		if query.Matches(t) {
			result = append(result, t)
		}
	}
	return result, nil
}

// MemoryStore implements store.MemoryStore.
type MemoryStore struct {
	db *gorm.DB
}

func (s *MemoryStore) Get(ctx context.Context, ownerID string, t tab.ID) (string, bool, error) {
	var record TabMemory
	err := s.db.WithContext(ctx).Where("owner_id = ? AND tab = ?", ownerID, string(t)).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get memory note: %w", err)
	}
	return record.Note, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, ownerID string, t tab.ID, note string) error {
	record := TabMemory{OwnerID: ownerID, Tab: string(t), Note: note}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to put memory note: %w", err)
	}
	return nil
}

// ProfileStore implements profile.Store.
type ProfileStore struct {
	db *gorm.DB
}

func (s *ProfileStore) Get(ctx context.Context, ownerID string) (profile.Profile, bool, error) {
	var record ProfileRecord
	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return profile.Profile{}, false, nil
	}
	if err != nil {
		return profile.Profile{}, false, fmt.Errorf("failed to get profile: %w", err)
	}

	var p profile.Profile
	if err := json.Unmarshal(record.Data, &p); err != nil {
		return profile.Profile{}, false, fmt.Errorf("failed to decode profile: %w", err)
	}
	return p, true, nil
}

func (s *ProfileStore) Put(ctx context.Context, p profile.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	record := ProfileRecord{OwnerID: p.OwnerID, Data: datatypes.JSON(data)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to put profile: %w", err)
	}
	return nil
}
