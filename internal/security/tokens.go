package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNotJWT is returned when a token is not a parseable JWT. Opaque tokens are valid
	// credentials; callers just cannot learn their expiry.
	ErrNotJWT = errors.New("token is not a JWT")
)

// TokenInfo is what the console can read from an access token without the backend's key.
type TokenInfo struct {
	Subject   string
	IssuedAt  *time.Time
	ExpiresAt *time.Time // nil when the token carries no exp claim
}

// Expired reports whether the token's exp claim is at or before now. Tokens without exp never expire here.
func (i TokenInfo) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}

// InspectToken parses the access token's registered claims without verifying the signature.
// The backend remains the only authority; this is used to drop a session that is already
// past its exp before sending a request that would come back 401.
func InspectToken(token string) (TokenInfo, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return TokenInfo{}, ErrNotJWT
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, ErrNotJWT
	}
	info := TokenInfo{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		t := claims.IssuedAt.Time.UTC()
		info.IssuedAt = &t
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time.UTC()
		info.ExpiresAt = &t
	}
	return info, nil
}
