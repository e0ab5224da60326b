package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByDatasetID struct {
	DatasetID uuid.UUID
}

func (s ByDatasetID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("dataset_id = ?", s.DatasetID)
}

type ByDataPointID struct {
	DataPointID uuid.UUID
}

func (s ByDataPointID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("data_point_id = ?", s.DataPointID)
}

type ByName struct {
	Name string
}

func (s ByName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("name = ?", s.Name)
}
