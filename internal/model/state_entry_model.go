package model

import (
	"time"

	"gorm.io/datatypes"
)

// StateEntry is one persisted key of the process state store.
type StateEntry struct {
	Key       string         `gorm:"type:varchar(100);primaryKey"`
	Value     datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (StateEntry) TableName() string {
	return "state_entries"
}
