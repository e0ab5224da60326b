package contract

import (
	"context"

	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/repository/specification"
)

type DatasetRepository interface {
	Create(ctx context.Context, dataset *entity.Dataset) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Dataset, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Dataset, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
