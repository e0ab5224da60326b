package mapper

import (
	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/model"
)

type DataPointMapper struct{}

func NewDataPointMapper() *DataPointMapper {
	return &DataPointMapper{}
}

func (m *DataPointMapper) ToEntity(d *model.DataPoint) *entity.DataPoint {
	if d == nil {
		return nil
	}
	return &entity.DataPoint{
		Id:        d.Id,
		UserId:    d.UserId,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (m *DataPointMapper) ToModel(d *entity.DataPoint) *model.DataPoint {
	if d == nil {
		return nil
	}
	return &model.DataPoint{
		Id:        d.Id,
		UserId:    d.UserId,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (m *DataPointMapper) ToEntities(points []*model.DataPoint) []*entity.DataPoint {
	entities := make([]*entity.DataPoint, len(points))
	for i, d := range points {
		entities[i] = m.ToEntity(d)
	}
	return entities
}

func (m *DataPointMapper) AssociationToEntity(a *model.DatasetDataPoint) *entity.DatasetDataPoint {
	if a == nil {
		return nil
	}
	return &entity.DatasetDataPoint{
		Id:          a.Id,
		DatasetId:   a.DatasetId,
		DataPointId: a.DataPointId,
		Label:       a.Label,
		CreatedAt:   a.CreatedAt,
	}
}

func (m *DataPointMapper) AssociationToModel(a *entity.DatasetDataPoint) *model.DatasetDataPoint {
	if a == nil {
		return nil
	}
	return &model.DatasetDataPoint{
		Id:          a.Id,
		DatasetId:   a.DatasetId,
		DataPointId: a.DataPointId,
		Label:       a.Label,
		CreatedAt:   a.CreatedAt,
	}
}
