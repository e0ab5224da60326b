package statestore

import (
	"context"
	"encoding/json"

	"github.com/KayTeo/mimir-extension/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists state entries in the row store so they survive process
// restarts, mirroring the durable local storage of the original deployment.
type GormStore struct {
	db        *gorm.DB
	listeners listenerSet
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	var entries []model.StateEntry
	if err := s.db.WithContext(ctx).Where("key IN ?", keys).Find(&entries).Error; err != nil {
		return nil, err
	}

	result := make(map[string]json.RawMessage, len(entries))
	for _, entry := range entries {
		result[entry.Key] = json.RawMessage(entry.Value)
	}
	return result, nil
}

func (s *GormStore) Set(ctx context.Context, values map[string]json.RawMessage) error {
	if len(values) == 0 {
		return nil
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	old, err := s.Get(ctx, keys...)
	if err != nil {
		return err
	}

	changes := make([]Change, 0, len(values))
	for key, value := range values {
		entry := model.StateEntry{Key: key, Value: datatypes.JSON(value)}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entry).Error
		if err != nil {
			return err
		}
		changes = append(changes, Change{Key: key, OldValue: old[key], NewValue: value})
	}

	s.listeners.notify(changes)
	return nil
}

func (s *GormStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	old, err := s.Get(ctx, keys...)
	if err != nil {
		return err
	}

	// Single batched delete so observers never see a half-cleared state.
	if err := s.db.WithContext(ctx).Where("key IN ?", keys).Delete(&model.StateEntry{}).Error; err != nil {
		return err
	}

	changes := make([]Change, 0, len(keys))
	for _, key := range keys {
		if oldValue, ok := old[key]; ok {
			changes = append(changes, Change{Key: key, OldValue: oldValue})
		}
	}
	s.listeners.notify(changes)
	return nil
}

func (s *GormStore) OnChange(l Listener) {
	s.listeners.add(l)
}
