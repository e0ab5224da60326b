package model

import (
	"time"

	"github.com/google/uuid"
)

type Dataset struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"type:varchar(255);not null"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Dataset) TableName() string {
	return "datasets"
}
