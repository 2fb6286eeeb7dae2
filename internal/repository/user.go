package repository

import (
	"context"

	"auth-portal/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// UpdateProfile persists the mutable profile fields (name, username,
	// image) of an existing user. Email and password hash are not touched.
	UpdateProfile(ctx context.Context, user *domain.User) error
}
