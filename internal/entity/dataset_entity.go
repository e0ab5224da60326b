// FILE: internal/entity/dataset_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
)

type Dataset struct {
	Id        uuid.UUID
	Name      string
	UserId    uuid.UUID
	CreatedAt time.Time
}
