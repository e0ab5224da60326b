package contract

import (
	"context"

	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/repository/specification"

	"github.com/google/uuid"
)

type DataPointRepository interface {
	Create(ctx context.Context, point *entity.DataPoint) error
	UpdateContent(ctx context.Context, id uuid.UUID, content string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DataPoint, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DataPoint, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

// AssociationRepository manages dataset membership records. Associations are
// append-only; there is no delete operation.
type AssociationRepository interface {
	Create(ctx context.Context, assoc *entity.DatasetDataPoint) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DatasetDataPoint, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
