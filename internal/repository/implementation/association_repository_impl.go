package implementation

import (
	"context"

	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/mapper"
	"github.com/KayTeo/mimir-extension/internal/model"
	"github.com/KayTeo/mimir-extension/internal/repository/contract"
	"github.com/KayTeo/mimir-extension/internal/repository/scope"
	"github.com/KayTeo/mimir-extension/internal/repository/specification"

	"gorm.io/gorm"
)

type AssociationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DataPointMapper
}

func NewAssociationRepository(db *gorm.DB) contract.AssociationRepository {
	return &AssociationRepositoryImpl{
		db:     db,
		mapper: mapper.NewDataPointMapper(),
	}
}

func (r *AssociationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AssociationRepositoryImpl) Create(ctx context.Context, assoc *entity.DatasetDataPoint) error {
	m := r.mapper.AssociationToModel(assoc)
	// Omit eager-load structs so gorm does not try to upsert the parents.
	if err := r.db.WithContext(ctx).Omit("Dataset", "DataPoint").Create(m).Error; err != nil {
		return err
	}
	*assoc = *r.mapper.AssociationToEntity(m)
	return nil
}

func (r *AssociationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DatasetDataPoint, error) {
	var models []*model.DatasetDataPoint
	// Membership listings keep insertion order.
	query := r.applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByCreatedAsc), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	result := make([]*entity.DatasetDataPoint, len(models))
	for i, m := range models {
		result[i] = r.mapper.AssociationToEntity(m)
	}
	return result, nil
}

func (r *AssociationRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.DatasetDataPoint{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
