package domain

import "time"

// Event types emitted by the console.
const (
	EventLogin          = "login"
	EventLogout         = "logout"
	EventSessionExpired = "session_expired"
	EventVerifyDevice   = "verify_device"
	EventCacheCleared   = "cache_cleared"
)

// Event is one admin-side occurrence worth recording (who, what, on which resource).
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"eventType"`
	AdminID   string            `json:"adminId,omitempty"`
	Resource  string            `json:"resource,omitempty"`
	Source    string            `json:"source"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
