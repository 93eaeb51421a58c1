package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/models"
)

// MessageStorage implements the MessageStorage interface for Badger
type MessageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewMessageStorage creates a new MessageStorage instance
func NewMessageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.MessageStorage {
	return &MessageStorage{
		db:     db,
		logger: logger,
	}
}

// AppendMessage persists a chat message
func (s *MessageStorage) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	if err := s.db.Store().Insert(msg.ID, msg); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListByTrip returns all messages for a trip in chronological order
func (s *MessageStorage) ListByTrip(ctx context.Context, tripID string) ([]*models.ChatMessage, error) {
	var msgs []*models.ChatMessage
	err := s.db.Store().Find(&msgs, badgerhold.Where("TripID").Eq(tripID).Index("TripID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})

	return msgs, nil
}

// DeleteByTrip removes every message belonging to a trip
func (s *MessageStorage) DeleteByTrip(ctx context.Context, tripID string) error {
	err := s.db.Store().DeleteMatching(&models.ChatMessage{},
		badgerhold.Where("TripID").Eq(tripID).Index("TripID"))
	if err != nil {
		return fmt.Errorf("failed to delete messages for trip: %w", err)
	}
	return nil
}
