// Package dashboard serves the admin views as JSON over the API client.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"savings-admin/console/internal/analytics"
	"savings-admin/console/internal/apiclient"
	"savings-admin/console/internal/guard"
	"savings-admin/console/internal/session"
	sessiondomain "savings-admin/console/internal/session/domain"
	statsdomain "savings-admin/console/internal/stats/domain"
	transactiondomain "savings-admin/console/internal/transaction/domain"
	userdomain "savings-admin/console/internal/user/domain"
)

// Page sizes per view.
const (
	PageSize        = 20
	RecentLimit     = 6
	PendingScanSize = 10
)

// Handlers holds the dashboard's HTTP handlers.
type Handlers struct {
	client *apiclient.Client
	nowF   func() time.Time
}

// NewHandlers returns handlers backed by client.
func NewHandlers(client *apiclient.Client) *Handlers {
	return &Handlers{client: client, nowF: time.Now}
}

// Overview is the GET /dashboard body.
type Overview struct {
	Greeting   string                          `json:"greeting"`
	Admin      *sessiondomain.Admin            `json:"admin,omitempty"`
	Stats      *statsdomain.DashboardStats     `json:"stats,omitempty"`
	StatsError string                          `json:"statsError,omitempty"`
	Recent     []transactiondomain.Transaction `json:"recentTransactions"`
	Pending    []userdomain.User               `json:"pendingVerification"`
}

type messageBody struct {
	Message string `json:"message"`
}

// LoginPage answers GET / for signed-out visitors.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageBody{Message: "Sign in to continue"})
}

// Login accepts {email, password} as JSON or a form, signs in and sets the accessToken cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var creds sessiondomain.Credentials
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeJSON(w, http.StatusBadRequest, messageBody{Message: "Invalid JSON"})
			return
		}
	} else {
		creds.Email = r.FormValue("email")
		creds.Password = r.FormValue("password")
	}
	if creds.Email == "" || creds.Password == "" {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: "Email and password are required"})
		return
	}

	resp, err := h.client.Login(r.Context(), creds)
	if err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, session.TokenCookie(resp.AccessToken))
	writeJSON(w, http.StatusOK, struct {
		Message string              `json:"message"`
		Admin   sessiondomain.Admin `json:"admin"`
	}{Message: resp.Message, Admin: resp.Admin})
}

// Logout ends the session when the request carries its token, and always clears the caller's cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	reqToken, _ := guard.TokenFromContext(r.Context())
	if token, ok := h.client.Session().Token(); ok && reqToken == token {
		if err := h.client.Logout(r.Context()); err != nil {
			log.Printf("dashboard: logout: %v", err)
		}
	}
	http.SetCookie(w, session.ExpiredCookie())
	writeJSON(w, http.StatusOK, messageBody{Message: "Logged out"})
}

// Overview loads stats, recent transactions and customers awaiting device verification.
// Recent and pending fail softly; a stats failure is reported in StatsError.
func (h *Handlers) Overview(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	out := Overview{
		Admin:   h.client.Session().Admin(),
		Recent:  []transactiondomain.Transaction{},
		Pending: []userdomain.User{},
	}
	out.Greeting = "Welcome back"
	if out.Admin != nil && out.Admin.FullName != "" {
		out.Greeting += ", " + out.Admin.FullName
	}

	var statsErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Stats, statsErr = h.client.DashboardStats(gctx)
		return nil
	})
	g.Go(func() error {
		if page, err := h.client.Transactions(gctx, 1, RecentLimit, ""); err == nil {
			out.Recent = page.Transactions
		}
		return nil
	})
	g.Go(func() error {
		page, err := h.client.Users(gctx, 1, PendingScanSize, "")
		if err != nil {
			return nil
		}
		for _, u := range page.Users {
			if !u.DeviceVerified {
				out.Pending = append(out.Pending, u)
			}
		}
		return nil
	})
	_ = g.Wait()

	if statsErr != nil {
		if isSessionError(statsErr) {
			writeError(w, statsErr)
			return
		}
		out.StatsError = statsErr.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

// Customers lists one page of customers. Query: page, search.
func (h *Handlers) Customers(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	page, err := h.client.Users(ctx, pageParam(r), PageSize, strings.TrimSpace(r.URL.Query().Get("search")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Customer returns one customer.
func (h *Handlers) Customer(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	detail, err := h.client.User(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// VerifyDevice verifies the customer's device.
func (h *Handlers) VerifyDevice(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	detail, err := h.client.VerifyUserDevice(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Transactions lists one page of transactions. Query: page, userId.
func (h *Handlers) Transactions(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	page, err := h.client.Transactions(ctx, pageParam(r), PageSize, strings.TrimSpace(r.URL.Query().Get("userId")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Analytics returns the monthly flows and the device split.
func (h *Handlers) Analytics(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	report, err := analytics.Load(ctx, h.client, h.nowF())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// requireSession checks that the request's token is the session the client holds.
// A browser still carrying a cookie for a session that was logged out elsewhere gets 401.
func (h *Handlers) requireSession(w http.ResponseWriter, r *http.Request) (context.Context, bool) {
	reqToken, _ := guard.TokenFromContext(r.Context())
	token, ok := h.client.Session().Token()
	if !ok || reqToken != token {
		writeError(w, apiclient.ErrUnauthenticated)
		return nil, false
	}
	return r.Context(), true
}

func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func isSessionError(err error) bool {
	return errors.Is(err, apiclient.ErrUnauthenticated) || errors.Is(err, apiclient.ErrSessionExpired)
}

// writeError maps client errors to responses: session errors to 401 with the cookie cleared,
// backend rejections to their status, anything else to 502.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case isSessionError(err):
		http.SetCookie(w, session.ExpiredCookie())
		writeJSON(w, http.StatusUnauthorized, messageBody{Message: err.Error()})
	case apiclient.StatusOf(err) != 0:
		writeJSON(w, apiclient.StatusOf(err), messageBody{Message: err.Error()})
	default:
		log.Printf("dashboard: backend: %v", err)
		writeJSON(w, http.StatusBadGateway, messageBody{Message: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("dashboard: write response: %v", err)
	}
}
