package history

import (
	"context"
	"errors"

	"github.com/alisoliman/realtime-api/internal/conversation"
	"github.com/alisoliman/realtime-api/internal/shared"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Conversation{}, &Message{})
}

// Save writes one finished conversation and its messages atomically.
func (s *Store) Save(ctx context.Context, rec conversation.Record) error {
	conv := Conversation{
		ID:              shared.NewID("conv_"),
		Title:           rec.Title,
		StartedAt:       rec.StartedAt,
		DurationSeconds: int(rec.Duration.Seconds()),
	}
	for i, entry := range rec.Entries {
		conv.Messages = append(conv.Messages, Message{
			ID:             shared.NewID("msg_"),
			ConversationID: conv.ID,
			Role:           string(entry.Role),
			Content:        entry.Content,
			Position:       i,
			CreatedAt:      entry.CreatedAt,
		})
	}
	return s.db.WithContext(ctx).Create(&conv).Error
}

// List returns conversations without their messages, newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var convs []Conversation
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&convs).Error
	return convs, err
}

func (s *Store) Get(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &conv, err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&Message{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&Conversation{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}
