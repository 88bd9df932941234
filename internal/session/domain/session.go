package domain

import "time"

// Storage keys and cookie attributes shared by the console and the dashboard route guard.
const (
	TokenKey     = "accessToken"
	AdminKey     = "admin"
	CookieName   = "accessToken"
	CookiePath   = "/"
	CookieMaxAge = 30 * 24 * 60 * 60 // 2592000 seconds
)

// Admin is the signed-in administrator's profile. Display only; losing it does not end the session.
type Admin struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Session is the current credential plus the profile stored alongside it.
type Session struct {
	Token     string
	Admin     *Admin     // nil when no profile is stored
	ExpiresAt *time.Time // nil for opaque tokens
}

// Credentials is the POST /admin/login body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the POST /admin/login success body.
type LoginResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
	Admin       Admin  `json:"admin"`
}
