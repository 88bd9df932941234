package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func fakeAPI(t *testing.T, statsStatus *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/admin/login":
			fmt.Fprint(w, `{"message":"ok","accessToken":"cli-token","admin":{"_id":"a1","fullName":"Grace Admin","email":"grace@example.com"}}`)
		case "/api/v1/admin/stats":
			if got := r.Header.Get("Authorization"); got != "Bearer cli-token" {
				t.Errorf("Authorization = %q, want Bearer cli-token", got)
			}
			w.WriteHeader(*statsStatus)
			fmt.Fprint(w, `{"totalUsers":12,"verifiedUsers":4,"totalBalance":10,"totalTransactions":3}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"not found"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("API_BASE_URL", baseURL+"/api/v1")
	t.Setenv("SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("LOKI_URL", "")
	t.Setenv("APP_ENV", "test")
}

func runCmd(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_LoginStatsLogout(t *testing.T) {
	status := http.StatusOK
	setEnv(t, fakeAPI(t, &status).URL)

	code, out, errOut := runCmd("-cmd", "login", "-email", "grace@example.com", "-password", "pw")
	if code != 0 {
		t.Fatalf("login exit = %d, stderr %s", code, errOut)
	}
	if !strings.Contains(out, "Grace Admin") {
		t.Errorf("login output = %s, want admin profile", out)
	}

	code, out, errOut = runCmd("-cmd", "stats")
	if code != 0 {
		t.Fatalf("stats exit = %d, stderr %s", code, errOut)
	}
	var stats struct {
		TotalUsers int `json:"totalUsers"`
	}
	if err := json.Unmarshal([]byte(out), &stats); err != nil || stats.TotalUsers != 12 {
		t.Errorf("stats output = %s, want totalUsers 12", out)
	}

	code, out, _ = runCmd("-cmd", "whoami")
	if code != 0 || !strings.Contains(out, "grace@example.com") {
		t.Errorf("whoami exit %d output %s", code, out)
	}

	if code, _, errOut := runCmd("-cmd", "logout"); code != 0 {
		t.Fatalf("logout exit = %d, stderr %s", code, errOut)
	}
	code, _, errOut = runCmd("-cmd", "stats")
	if code != 3 || !strings.Contains(errOut, "Not authenticated") {
		t.Errorf("stats after logout exit %d stderr %q, want 3 and Not authenticated", code, errOut)
	}
}

func TestRun_SessionExpiredHint(t *testing.T) {
	status := http.StatusOK
	setEnv(t, fakeAPI(t, &status).URL)
	if code, _, errOut := runCmd("-cmd", "login", "-email", "g@example.com", "-password", "pw"); code != 0 {
		t.Fatalf("login exit = %d, stderr %s", code, errOut)
	}

	status = http.StatusUnauthorized
	code, _, errOut := runCmd("-cmd", "stats")
	if code != 3 {
		t.Errorf("exit = %d, want 3", code)
	}
	if !strings.Contains(errOut, "Session expired. Please login again") {
		t.Errorf("stderr = %q, want re-login hint", errOut)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	status := http.StatusOK
	setEnv(t, fakeAPI(t, &status).URL)

	for _, args := range [][]string{
		{"-cmd", "bogus"},
		{"-cmd", "login"},
		{"-cmd", "verify"},
		{"-cmd", "user"},
	} {
		if code, _, _ := runCmd(args...); code != 2 {
			t.Errorf("run(%v) exit = %d, want 2", args, code)
		}
	}
}
