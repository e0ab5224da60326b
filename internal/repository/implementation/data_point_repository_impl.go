package implementation

import (
	"context"
	"errors"

	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/mapper"
	"github.com/KayTeo/mimir-extension/internal/model"
	"github.com/KayTeo/mimir-extension/internal/repository/contract"
	"github.com/KayTeo/mimir-extension/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DataPointRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DataPointMapper
}

func NewDataPointRepository(db *gorm.DB) contract.DataPointRepository {
	return &DataPointRepositoryImpl{
		db:     db,
		mapper: mapper.NewDataPointMapper(),
	}
}

func (r *DataPointRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DataPointRepositoryImpl) Create(ctx context.Context, point *entity.DataPoint) error {
	m := r.mapper.ToModel(point)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*point = *r.mapper.ToEntity(m)
	return nil
}

func (r *DataPointRepositoryImpl) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	result := r.db.WithContext(ctx).Model(&model.DataPoint{}).Where("id = ?", id).Update("content", content)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *DataPointRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DataPoint, error) {
	var m model.DataPoint
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DataPointRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DataPoint, error) {
	var models []*model.DataPoint
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DataPointRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.DataPoint{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
