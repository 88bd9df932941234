package repository

import (
	"context"

	"savings-admin/console/internal/transaction/domain"
)

// Repository lists transactions. userID empty lists all users. Implemented by the API client.
type Repository interface {
	Transactions(ctx context.Context, page, limit int, userID string) (*domain.TransactionsPage, error)
}
