package unitofwork

import (
	"context"

	"github.com/KayTeo/mimir-extension/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	DatasetRepository() contract.DatasetRepository
	DataPointRepository() contract.DataPointRepository
	AssociationRepository() contract.AssociationRepository
}
