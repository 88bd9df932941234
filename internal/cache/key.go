package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// Key identifies a cached response. Two requests are cache-equivalent iff their keys are equal.
type Key struct {
	Method   string
	Endpoint string // path plus query, relative to the API base URL
	BodyHash string // hex SHA-256 of the request body; empty when there is no body

	body string // only read by MatchSubstring invalidation
}

// NewKey builds the key for a request. method is uppercased and defaults to GET.
func NewKey(method, endpoint string, body []byte) Key {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	k := Key{Method: method, Endpoint: endpoint}
	if len(body) > 0 {
		h := sha256.Sum256(body)
		k.BodyHash = hex.EncodeToString(h[:])
		k.body = string(body)
	}
	return k
}

// String renders the key as "METHOD endpoint :: bodyhash".
func (k Key) String() string {
	return k.Method + " " + k.Endpoint + " :: " + k.BodyHash
}

// text is the key as the raw request would print it, body included.
func (k Key) text() string {
	return k.Method + " " + k.Endpoint + " :: " + k.body
}

// MatchMode selects how InvalidatePrefix decides which keys to drop.
type MatchMode int

const (
	// MatchPrefix drops keys whose endpoint starts with the given prefix.
	MatchPrefix MatchMode = iota
	// MatchSubstring drops keys whose method, endpoint or body contains the given string anywhere.
	MatchSubstring
)

func (m MatchMode) String() string {
	switch m {
	case MatchPrefix:
		return "prefix"
	case MatchSubstring:
		return "substring"
	default:
		return "unknown"
	}
}

func (m MatchMode) matches(k Key, prefix string) bool {
	if m == MatchSubstring {
		return strings.Contains(k.text(), prefix)
	}
	return strings.HasPrefix(k.Endpoint, prefix)
}
