package repository

import (
	"context"

	"savings-admin/console/internal/user/domain"
)

// Repository reads and verifies customers. Implemented by the API client.
type Repository interface {
	Users(ctx context.Context, page, limit int, search string) (*domain.UsersPage, error)
	User(ctx context.Context, id string) (*domain.UserDetail, error)
	// VerifyUserDevice marks the user's registered device as verified and returns the updated user.
	VerifyUserDevice(ctx context.Context, id string) (*domain.UserDetail, error)
}
