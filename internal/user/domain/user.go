package domain

import "time"

// User is a savings customer as the admin API returns it.
type User struct {
	ID             string    `json:"_id"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	Balance        float64   `json:"balance"`
	DeviceVerified bool      `json:"deviceVerified"`
	DeviceID       string    `json:"deviceId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// UsersPage is one page of GET /admin/users.
type UsersPage struct {
	Users       []User `json:"users"`
	Total       int    `json:"total"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
}

// UserDetail wraps the single-user responses (GET /admin/users/:id, POST .../verify-device).
type UserDetail struct {
	User User `json:"user"`
}

// UserRef is the embedded owner of a transaction.
type UserRef struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}
