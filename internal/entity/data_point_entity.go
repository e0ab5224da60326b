// FILE: internal/entity/data_point_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
)

type DataPoint struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DatasetDataPoint links a data point into a dataset with a label.
// Associations are append-only; this core never deletes them.
type DatasetDataPoint struct {
	Id          uuid.UUID
	DatasetId   uuid.UUID
	DataPointId uuid.UUID
	Label       string
	CreatedAt   time.Time
}
