package domain

import (
	"time"

	userdomain "savings-admin/console/internal/user/domain"
)

// Type is the direction of a transaction.
type Type string

const (
	TypeDeposit  Type = "deposit"
	TypeWithdraw Type = "withdraw"
)

// Transaction is a posted balance movement.
type Transaction struct {
	ID           string             `json:"_id"`
	User         userdomain.UserRef `json:"userId"`
	Type         Type               `json:"type"`
	Amount       float64            `json:"amount"`
	BalanceAfter float64            `json:"balanceAfter"`
	Description  string             `json:"description"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// TransactionsPage is one page of GET /admin/transactions.
type TransactionsPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
	TotalPages   int           `json:"totalPages"`
	CurrentPage  int           `json:"currentPage"`
}
