package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sessiondomain "savings-admin/console/internal/session/domain"
	"savings-admin/console/internal/telemetry/domain"
)

const loginEndpoint = "/admin/login"

// Login exchanges credentials for a token. It is the one call sent without a bearer token.
// On success the token and admin profile are stored and the cache is cleared, so nothing
// cached under a previous session is served to the new one. A rejected login returns
// *RequestError carrying the backend's message, or "Login failed".
func (c *Client) Login(ctx context.Context, creds sessiondomain.Credentials) (*sessiondomain.LoginResponse, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "apiclient.login", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	status, raw, err := c.send(ctx, loginEndpoint, http.MethodPost, "", RequestOptions{Body: body})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status < 200 || status >= 300 {
		rerr := &RequestError{Status: status, Message: messageOr(raw, fallbackLoginMessage)}
		span.SetStatus(codes.Error, rerr.Message)
		c.logEvent(ctx, "", domain.EventLogin, loginEndpoint, map[string]string{"outcome": "failure"})
		return nil, rerr
	}

	resp, err := decode[sessiondomain.LoginResponse](loginEndpoint, raw)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, &RequestError{Status: status, Message: messageOr(raw, fallbackLoginMessage)}
	}

	if c.store == nil {
		return nil, errors.New("apiclient: no session store")
	}
	if err := c.store.StoreToken(resp.AccessToken); err != nil {
		return nil, err
	}
	if err := c.store.StoreAdmin(resp.Admin); err != nil {
		log.Printf("apiclient: store admin profile: %v", err)
	}
	c.cache.Clear()
	c.logEvent(ctx, resp.Admin.ID, domain.EventLogin, loginEndpoint, map[string]string{"outcome": "success"})
	return resp, nil
}

// Logout clears the stored token, the profile and the cache. No backend call is made.
func (c *Client) Logout(ctx context.Context) error {
	adminID := c.adminID()
	c.cache.Clear()
	var err error
	if c.store != nil {
		err = c.store.Clear()
	}
	c.logEvent(ctx, adminID, domain.EventLogout, "", nil)
	return err
}
