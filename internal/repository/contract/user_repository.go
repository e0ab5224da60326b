package contract

import (
	"context"

	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	Update(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	ActivateUser(ctx context.Context, userId uuid.UUID) error

	// Token Management (kept on the user repo for cohesion)
	CreateEmailVerificationToken(ctx context.Context, token *entity.EmailVerificationToken) error
	FindEmailVerificationToken(ctx context.Context, specs ...specification.Specification) (*entity.EmailVerificationToken, error)
	DeleteEmailVerificationToken(ctx context.Context, id uuid.UUID) error

	CreateRefreshToken(ctx context.Context, token *entity.UserRefreshToken) error
	FindRefreshToken(ctx context.Context, specs ...specification.Specification) (*entity.UserRefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}
