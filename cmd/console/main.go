// Console is the command-line admin client for the savings backend.
// The session is kept in SESSION_FILE so consecutive invocations (and the dashboard) share it.
//
//	console -cmd login -email admin@example.com -password ...
//	console -cmd users -page 1 -search ada
//	console -cmd verify -id <userId>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"savings-admin/console/internal/analytics"
	"savings-admin/console/internal/apiclient"
	"savings-admin/console/internal/app"
	"savings-admin/console/internal/config"
	sessiondomain "savings-admin/console/internal/session/domain"
	"savings-admin/console/internal/telemetry"
)

const relogin = "Session expired. Please login again: console -cmd login -email <email> -password <password>"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cmd := fs.String("cmd", "whoami", "Command: login, logout, whoami, stats, users, user, transactions, verify, analytics")
	email := fs.String("email", "", "Admin email (login)")
	password := fs.String("password", os.Getenv("ADMIN_PASSWORD"), "Admin password (login); defaults to $ADMIN_PASSWORD")
	page := fs.Int("page", 1, "Page number")
	limit := fs.Int("limit", 20, "Page size")
	search := fs.String("search", "", "Search term (users)")
	userID := fs.String("user", "", "Filter by user ID (transactions)")
	id := fs.String("id", "", "User ID (user, verify)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	rt, err := app.Build(ctx, cfg, app.Options{Source: "console"})
	if err != nil {
		fmt.Fprintf(stderr, "console: %v\n", err)
		return 1
	}
	defer func() {
		var drain time.Duration
		if cfg.OTLPEndpoint != "" || cfg.LokiURL != "" {
			drain = telemetry.ShutdownDrainDuration
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drain+5*time.Second)
		defer cancel()
		rt.Shutdown(shutdownCtx, drain)
	}()

	client := rt.Client
	client.OnSessionExpired(func(context.Context) {
		fmt.Fprintln(stderr, relogin)
	})

	var out any
	switch *cmd {
	case "login":
		if *email == "" || *password == "" {
			fmt.Fprintln(stderr, "console: login needs -email and -password")
			return 2
		}
		resp, err := client.Login(ctx, sessiondomain.Credentials{Email: *email, Password: *password})
		if err != nil {
			return fail(stderr, err)
		}
		out = resp.Admin
	case "logout":
		if err := client.Logout(ctx); err != nil {
			return fail(stderr, err)
		}
		out = map[string]string{"message": "Logged out"}
	case "whoami":
		sess := rt.Store.Snapshot()
		if sess.Token == "" {
			return fail(stderr, apiclient.ErrUnauthenticated)
		}
		out = struct {
			Admin     *sessiondomain.Admin `json:"admin"`
			ExpiresAt *time.Time           `json:"expiresAt,omitempty"`
			Active    bool                 `json:"active"`
		}{sess.Admin, sess.ExpiresAt, rt.Store.Active(time.Now())}
	case "stats":
		out, err = client.DashboardStats(ctx)
	case "users":
		out, err = client.Users(ctx, *page, *limit, *search)
	case "user":
		if *id == "" {
			fmt.Fprintln(stderr, "console: user needs -id")
			return 2
		}
		out, err = client.User(ctx, *id)
	case "transactions":
		out, err = client.Transactions(ctx, *page, *limit, *userID)
	case "verify":
		if *id == "" {
			fmt.Fprintln(stderr, "console: verify needs -id")
			return 2
		}
		out, err = client.VerifyUserDevice(ctx, *id)
	case "analytics":
		out, err = analytics.Load(ctx, client, time.Now())
	default:
		fmt.Fprintf(stderr, "console: unknown command %q\n", *cmd)
		fs.Usage()
		return 2
	}
	if err != nil {
		return fail(stderr, err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Printf("console: write output: %v", err)
		return 1
	}
	return 0
}

// fail prints err and picks the exit code. The session-expired hint is printed by the subscriber.
func fail(stderr io.Writer, err error) int {
	switch {
	case errors.Is(err, apiclient.ErrSessionExpired):
		return 3
	case errors.Is(err, apiclient.ErrUnauthenticated):
		fmt.Fprintf(stderr, "%v. Run: console -cmd login -email <email> -password <password>\n", err)
		return 3
	default:
		fmt.Fprintf(stderr, "console: %v\n", err)
		return 1
	}
}
