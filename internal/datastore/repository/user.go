package repository

import (
	"context"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
)

// UserRepository exposes the few user lookups the alerting subsystem needs.
type UserRepository interface {
	GetUser(ctx context.Context, id uint) (*entities.User, error)
	CreateUser(ctx context.Context, user *entities.User) error
	// FindAdmin returns the first staff superuser, else the first staff user.
	// Returns ErrUserNotFound when neither exists.
	FindAdmin(ctx context.Context) (*entities.User, error)
}
