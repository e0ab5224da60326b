// FILE: internal/entity/user_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusPending UserStatus = "pending"
	UserStatusActive  UserStatus = "active"
)

// User backs the local identity provider. When the hosted provider is used,
// this table only mirrors identities for ownership foreign keys.
type User struct {
	Id            uuid.UUID
	Email         string
	PasswordHash  *string
	Status        UserStatus
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type EmailVerificationToken struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type UserRefreshToken struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
