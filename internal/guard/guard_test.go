package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, r *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = TokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec, seen
}

func withCookie(r *http.Request, token string) *http.Request {
	r.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	return r
}

func TestMiddleware(t *testing.T) {
	testCases := []struct {
		name         string
		req          *http.Request
		wantStatus   int
		wantLocation string
		wantToken    string
	}{
		{"protected without cookie", httptest.NewRequest(http.MethodGet, "/dashboard", nil), http.StatusFound, "/", ""},
		{"nested protected without cookie", httptest.NewRequest(http.MethodGet, "/customers/u1", nil), http.StatusFound, "/", ""},
		{"analytics without cookie", httptest.NewRequest(http.MethodGet, "/analytics", nil), http.StatusFound, "/", ""},
		{"transactions with cookie", withCookie(httptest.NewRequest(http.MethodGet, "/transactions?page=2", nil), "tok"), http.StatusOK, "", "tok"},
		{"login page with cookie", withCookie(httptest.NewRequest(http.MethodGet, "/", nil), "tok"), http.StatusFound, "/dashboard", ""},
		{"login page without cookie", httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "", ""},
		{"login post with cookie", withCookie(httptest.NewRequest(http.MethodPost, "/", nil), "tok"), http.StatusOK, "", "tok"},
		{"unprotected lookalike", httptest.NewRequest(http.MethodGet, "/dashboards", nil), http.StatusOK, "", ""},
		{"empty cookie", withCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), ""), http.StatusFound, "/", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, seen := serve(t, tc.req)
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := rec.Header().Get("Location"); got != tc.wantLocation {
				t.Errorf("Location = %q, want %q", got, tc.wantLocation)
			}
			if seen != tc.wantToken {
				t.Errorf("token = %q, want %q", seen, tc.wantToken)
			}
		})
	}
}

func TestMiddleware_BearerHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.Header.Set("Authorization", "Bearer hdr-token")
	rec, seen := serve(t, r)
	if rec.Code != http.StatusOK || seen != "hdr-token" {
		t.Errorf("status %d token %q, want 200 hdr-token", rec.Code, seen)
	}

	// The cookie wins over the header.
	r = withCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), "cookie-token")
	r.Header.Set("Authorization", "Bearer hdr-token")
	if _, seen := serve(t, r); seen != "cookie-token" {
		t.Errorf("token = %q, want cookie-token", seen)
	}
}

func TestExtractBearer(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"Bearer abc", "abc"},
		{"bearer   abc  ", "abc"},
		{"BEARER abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := extractBearer(tc.in); got != tc.want {
			t.Errorf("extractBearer(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokenFromContext_Unset(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if tok, ok := TokenFromContext(r.Context()); ok || tok != "" {
		t.Errorf("TokenFromContext = %q, %v; want empty", tok, ok)
	}
}
