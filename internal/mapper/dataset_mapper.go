package mapper

import (
	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/model"
)

type DatasetMapper struct{}

func NewDatasetMapper() *DatasetMapper {
	return &DatasetMapper{}
}

func (m *DatasetMapper) ToEntity(d *model.Dataset) *entity.Dataset {
	if d == nil {
		return nil
	}
	return &entity.Dataset{
		Id:        d.Id,
		Name:      d.Name,
		UserId:    d.UserId,
		CreatedAt: d.CreatedAt,
	}
}

func (m *DatasetMapper) ToModel(d *entity.Dataset) *model.Dataset {
	if d == nil {
		return nil
	}
	return &model.Dataset{
		Id:        d.Id,
		Name:      d.Name,
		UserId:    d.UserId,
		CreatedAt: d.CreatedAt,
	}
}

func (m *DatasetMapper) ToEntities(datasets []*model.Dataset) []*entity.Dataset {
	entities := make([]*entity.Dataset, len(datasets))
	for i, d := range datasets {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
