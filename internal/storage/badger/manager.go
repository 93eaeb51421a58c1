package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/common"
	"github.com/ternarybob/voyager/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db         *BadgerDB
	trip       interfaces.TripStorage
	dest       interfaces.DestinationStorage
	message    interfaces.MessageStorage
	placeCache interfaces.PlaceCacheStorage
	kv         interfaces.KeyValueStorage
	logger     arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:         db,
		trip:       NewTripStorage(db, logger),
		dest:       NewDestinationStorage(db, logger),
		message:    NewMessageStorage(db, logger),
		placeCache: NewPlaceCacheStorage(db, logger),
		kv:         NewKVStorage(db, logger),
		logger:     logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// TripStorage returns the Trip storage interface
func (m *Manager) TripStorage() interfaces.TripStorage {
	return m.trip
}

// DestinationStorage returns the Destination storage interface
func (m *Manager) DestinationStorage() interfaces.DestinationStorage {
	return m.dest
}

// MessageStorage returns the chat transcript storage interface
func (m *Manager) MessageStorage() interfaces.MessageStorage {
	return m.message
}

// PlaceCacheStorage returns the place cache storage interface
func (m *Manager) PlaceCacheStorage() interfaces.PlaceCacheStorage {
	return m.placeCache
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
