package apiclient

import "errors"

var (
	// ErrUnauthenticated is returned when no token is stored. No request was sent.
	ErrUnauthenticated = errors.New("Not authenticated")
	// ErrSessionExpired is returned when the backend rejected the token with 401.
	// The token and the whole cache have been cleared by the time it is returned.
	ErrSessionExpired = errors.New("Session expired. Please login again.")
)

const (
	fallbackRequestMessage = "Request failed"
	fallbackLoginMessage   = "Login failed"
)

// RequestError is a non-2xx, non-401 response. Message is the body's message field,
// or a generic text when the body carried none.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not a *RequestError.
func StatusOf(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}
