// FILE: internal/service/store_gateway_service.go
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/errs"
	"github.com/KayTeo/mimir-extension/internal/repository/specification"
	"github.com/KayTeo/mimir-extension/internal/repository/unitofwork"
	"github.com/KayTeo/mimir-extension/pkg/llm"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IStoreGatewayService is the thin capability over the backing row store plus
// the external text-completion call. No caching, no retries; every call is a
// direct round-trip and failures surface as errs types.
type IStoreGatewayService interface {
	CreateDataPoint(ctx context.Context, ownerId uuid.UUID, content string) (*entity.DataPoint, error)
	UpdateDataPoint(ctx context.Context, id uuid.UUID, content string) error
	CreateAssociation(ctx context.Context, datasetId, dataPointId uuid.UUID, label string) error
	ListDatasets(ctx context.Context, ownerId uuid.UUID) ([]*entity.Dataset, error)
	CreateDataset(ctx context.Context, ownerId uuid.UUID, name string) (*entity.Dataset, error)
	InvokeGenerator(ctx context.Context, promptText string) (string, error)
}

type storeGatewayService struct {
	uowFactory unitofwork.RepositoryFactory
	generator  llm.Provider
}

func NewStoreGatewayService(uowFactory unitofwork.RepositoryFactory, generator llm.Provider) IStoreGatewayService {
	return &storeGatewayService{
		uowFactory: uowFactory,
		generator:  generator,
	}
}

func classifyStoreError(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.NewStoreError(op, errs.StoreNotFound, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return errs.NewStoreError(op, errs.StoreForeignKey, err)
	default:
		return errs.NewStoreError(op, errs.StoreInternal, err)
	}
}

func (sg *storeGatewayService) CreateDataPoint(ctx context.Context, ownerId uuid.UUID, content string) (*entity.DataPoint, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errs.NewValidationError("content", "must not be empty")
	}

	uow := sg.uowFactory.NewUnitOfWork(ctx)
	point := entity.DataPoint{
		Id:        uuid.New(),
		UserId:    ownerId,
		Content:   content,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := uow.DataPointRepository().Create(ctx, &point); err != nil {
		return nil, classifyStoreError("createDataPoint", err)
	}

	return &point, nil
}

func (sg *storeGatewayService) UpdateDataPoint(ctx context.Context, id uuid.UUID, content string) error {
	if strings.TrimSpace(content) == "" {
		return errs.NewValidationError("content", "must not be empty")
	}

	uow := sg.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DataPointRepository().UpdateContent(ctx, id, content); err != nil {
		return classifyStoreError("updateDataPoint", err)
	}

	return nil
}

func (sg *storeGatewayService) CreateAssociation(ctx context.Context, datasetId, dataPointId uuid.UUID, label string) error {
	// Label may be empty-string; only the ids are validated by the store's
	// foreign keys.
	uow := sg.uowFactory.NewUnitOfWork(ctx)
	assoc := entity.DatasetDataPoint{
		Id:          uuid.New(),
		DatasetId:   datasetId,
		DataPointId: dataPointId,
		Label:       label,
		CreatedAt:   time.Now(),
	}

	if err := uow.AssociationRepository().Create(ctx, &assoc); err != nil {
		return classifyStoreError("createAssociation", err)
	}

	return nil
}

func (sg *storeGatewayService) ListDatasets(ctx context.Context, ownerId uuid.UUID) ([]*entity.Dataset, error) {
	uow := sg.uowFactory.NewUnitOfWork(ctx)
	datasets, err := uow.DatasetRepository().FindAll(ctx,
		specification.OwnedBy{UserID: ownerId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, classifyStoreError("listDatasets", err)
	}

	return datasets, nil
}

func (sg *storeGatewayService) CreateDataset(ctx context.Context, ownerId uuid.UUID, name string) (*entity.Dataset, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.NewValidationError("name", "must not be empty")
	}

	uow := sg.uowFactory.NewUnitOfWork(ctx)
	dataset := entity.Dataset{
		Id:        uuid.New(),
		Name:      name,
		UserId:    ownerId,
		CreatedAt: time.Now(),
	}

	if err := uow.DatasetRepository().Create(ctx, &dataset); err != nil {
		return nil, classifyStoreError("createDataset", err)
	}

	return &dataset, nil
}

func (sg *storeGatewayService) InvokeGenerator(ctx context.Context, promptText string) (string, error) {
	raw, err := sg.generator.Generate(ctx, promptText)
	if err != nil {
		return "", &errs.GenerationError{Message: "provider call failed", Cause: err}
	}

	return raw, nil
}
