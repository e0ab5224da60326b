package implementation

import (
	"context"
	"errors"

	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/mapper"
	"github.com/KayTeo/mimir-extension/internal/model"
	"github.com/KayTeo/mimir-extension/internal/repository/contract"
	"github.com/KayTeo/mimir-extension/internal/repository/specification"

	"gorm.io/gorm"
)

type DatasetRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DatasetMapper
}

func NewDatasetRepository(db *gorm.DB) contract.DatasetRepository {
	return &DatasetRepositoryImpl{
		db:     db,
		mapper: mapper.NewDatasetMapper(),
	}
}

func (r *DatasetRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DatasetRepositoryImpl) Create(ctx context.Context, dataset *entity.Dataset) error {
	m := r.mapper.ToModel(dataset)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*dataset = *r.mapper.ToEntity(m)
	return nil
}

func (r *DatasetRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Dataset, error) {
	var m model.Dataset
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DatasetRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Dataset, error) {
	var models []*model.Dataset
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DatasetRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Dataset{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
