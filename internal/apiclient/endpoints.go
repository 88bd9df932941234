package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"savings-admin/console/internal/stats/domain"
	telemetrydomain "savings-admin/console/internal/telemetry/domain"
	transactiondomain "savings-admin/console/internal/transaction/domain"
	transactionrepo "savings-admin/console/internal/transaction/repository"
	userdomain "savings-admin/console/internal/user/domain"
	userrepo "savings-admin/console/internal/user/repository"
)

// Read TTLs per endpoint.
const (
	StatsTTL        = 30 * time.Second
	UsersTTL        = 20 * time.Second
	UserTTL         = 30 * time.Second
	TransactionsTTL = 15 * time.Second
)

// Endpoint paths, also used as invalidation prefixes.
const (
	StatsPath        = "/admin/stats"
	UsersPath        = "/admin/users"
	TransactionsPath = "/admin/transactions"
)

var (
	_ userrepo.Repository        = (*Client)(nil)
	_ transactionrepo.Repository = (*Client)(nil)
)

// DashboardStats returns the headline figures. Cached for 30s.
func (c *Client) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	data, err := c.DoCached(ctx, StatsPath, RequestOptions{}, StatsTTL)
	if err != nil {
		return nil, err
	}
	return decode[domain.DashboardStats](StatsPath, data)
}

// Users returns one page of customers, filtered by search when non-empty. Cached for 20s.
func (c *Client) Users(ctx context.Context, page, limit int, search string) (*userdomain.UsersPage, error) {
	q := pageQuery(page, limit)
	if search != "" {
		q.Set("search", search)
	}
	endpoint := UsersPath + "?" + q.Encode()
	data, err := c.DoCached(ctx, endpoint, RequestOptions{}, UsersTTL)
	if err != nil {
		return nil, err
	}
	return decode[userdomain.UsersPage](endpoint, data)
}

// User returns one customer. Cached for 30s.
func (c *Client) User(ctx context.Context, id string) (*userdomain.UserDetail, error) {
	endpoint := UsersPath + "/" + url.PathEscape(id)
	data, err := c.DoCached(ctx, endpoint, RequestOptions{}, UserTTL)
	if err != nil {
		return nil, err
	}
	return decode[userdomain.UserDetail](endpoint, data)
}

// Transactions returns one page of transactions, for a single user when userID is non-empty.
// Cached for 15s.
func (c *Client) Transactions(ctx context.Context, page, limit int, userID string) (*transactiondomain.TransactionsPage, error) {
	q := pageQuery(page, limit)
	if userID != "" {
		q.Set("userId", userID)
	}
	endpoint := TransactionsPath + "?" + q.Encode()
	data, err := c.DoCached(ctx, endpoint, RequestOptions{}, TransactionsTTL)
	if err != nil {
		return nil, err
	}
	return decode[transactiondomain.TransactionsPage](endpoint, data)
}

// VerifyUserDevice marks the customer's device as verified. On success cached user lists,
// user details and stats are invalidated so the next reads refetch.
func (c *Client) VerifyUserDevice(ctx context.Context, id string) (*userdomain.UserDetail, error) {
	endpoint := UsersPath + "/" + url.PathEscape(id) + "/verify-device"
	data, err := c.Do(ctx, endpoint, RequestOptions{Method: http.MethodPost})
	if err != nil {
		return nil, err
	}
	c.InvalidateCacheByPrefix(UsersPath)
	c.InvalidateCacheByPrefix(StatsPath)
	c.logEvent(ctx, c.adminID(), telemetrydomain.EventVerifyDevice, endpoint, nil)
	return decode[userdomain.UserDetail](endpoint, data)
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	q.Set("page", itoa(page))
	q.Set("limit", itoa(limit))
	return q
}
