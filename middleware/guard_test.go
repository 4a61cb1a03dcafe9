package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/jwt"
)

type fakeVerifier map[string]*jwt.AccessClaims

func (f fakeVerifier) VerifyAccess(token string) (*jwt.AccessClaims, error) {
	if c, ok := f[token]; ok {
		return c, nil
	}
	return nil, sessionauth.ErrTokenInvalid
}

type recordingAuditor struct {
	resources []string
}

func (a *recordingAuditor) RecordUnauthorizedAccess(_ context.Context, _ *jwt.AccessClaims, resource string) {
	a.resources = append(a.resources, resource)
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	_, _ = w.Write([]byte(claims.UserID))
}

func TestRequireAccessCookieAndBearer(t *testing.T) {
	v := fakeVerifier{"good": {UserID: "u1", Role: "user"}}
	h := RequireAccess(v, nil)(http.HandlerFunc(okHandler))

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"none", func(*http.Request) {}, http.StatusUnauthorized},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessCookie, Value: "good"}) }, http.StatusOK},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer good") }, http.StatusOK},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, http.StatusUnauthorized},
		{"basic", func(r *http.Request) { r.Header.Set("Authorization", "Basic good") }, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
		tc.setup(req)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, rec.Code)
		}
		if tc.status == http.StatusOK && rec.Body.String() != "u1" {
			t.Fatalf("%s: claims not stored, body %q", tc.name, rec.Body.String())
		}
	}
}

func TestRequireRoleRecordsRejection(t *testing.T) {
	v := fakeVerifier{
		"user":  {UserID: "u1", Role: "user"},
		"admin": {UserID: "a1", Role: "admin"},
	}
	auditor := &recordingAuditor{}
	var gotErr error
	onErr := func(w http.ResponseWriter, _ *http.Request, err error) {
		gotErr = err
		w.WriteHeader(http.StatusForbidden)
	}
	h := Chain(http.HandlerFunc(okHandler),
		RequireAccess(v, onErr),
		RequireRole(auditor, onErr, account.RoleAdmin),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/user/all", nil)
	req.Header.Set("Authorization", "Bearer user")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden || !errors.Is(gotErr, sessionauth.ErrForbidden) {
		t.Fatalf("expected forbidden, got %d %v", rec.Code, gotErr)
	}
	if len(auditor.resources) != 1 || auditor.resources[0] != "GET /api/user/all" {
		t.Fatalf("unexpected audit %v", auditor.resources)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/user/all", nil)
	req.Header.Set("Authorization", "Bearer admin")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin rejected: %d", rec.Code)
	}
}

func TestClientIPHonoursProxyOnlyWhenTrusted(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:4321"
	req.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.5")

	if got := ClientIP(req, false); got != "10.0.0.5" {
		t.Fatalf("untrusted: got %q", got)
	}
	if got := ClientIP(req, true); got != "203.0.113.1" {
		t.Fatalf("trusted: got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS("https://app.example.com")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("missing credentials header")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("foreign origin must not be allowed")
	}
}
