package model

import (
	"time"

	"github.com/google/uuid"
)

type DataPoint struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (DataPoint) TableName() string {
	return "data_points"
}

type DatasetDataPoint struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DatasetId   uuid.UUID `gorm:"type:uuid;not null;index"`
	DataPointId uuid.UUID `gorm:"type:uuid;not null;index"`
	Label       string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`

	Dataset   Dataset   `gorm:"foreignKey:DatasetId;constraint:OnDelete:CASCADE"`
	DataPoint DataPoint `gorm:"foreignKey:DataPointId;constraint:OnDelete:CASCADE"`
}

func (DatasetDataPoint) TableName() string {
	return "dataset_data_points"
}
