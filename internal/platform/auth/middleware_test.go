package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testCfg = JWTConfig{Issuer: "patientflow", SigningKey: []byte("test-secret")}

func serveWith(mw echo.MiddlewareFunc, header string, value string) (*httptest.ResponseRecorder, context.Context, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen context.Context
	err := mw(func(c echo.Context) error {
		seen = c.Request().Context()
		return c.String(http.StatusOK, "ok")
	})(c)
	return rec, seen, err
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token, err := IssueToken(testCfg, "user-1", "hosp-1", "TRIAGE", []string{"nurse"})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	_, ctx, err := serveWith(JWTMiddleware(testCfg), "Authorization", "Bearer "+token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := UserIDFromContext(ctx); got != "user-1" {
		t.Errorf("expected user-1, got %q", got)
	}
	if got := HospitalIDFromContext(ctx); got != "hosp-1" {
		t.Errorf("expected hosp-1, got %q", got)
	}
	if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != "nurse" {
		t.Errorf("expected [nurse], got %v", roles)
	}
}

func TestJWTMiddleware_Rejects(t *testing.T) {
	wrongKey, _ := IssueToken(JWTConfig{Issuer: "patientflow", SigningKey: []byte("other")}, "u", "h", "", nil)
	wrongIssuer, _ := IssueToken(JWTConfig{Issuer: "someone-else", SigningKey: testCfg.SigningKey}, "u", "h", "", nil)
	expired, _ := IssueToken(JWTConfig{Issuer: "patientflow", SigningKey: testCfg.SigningKey, TTL: -time.Minute}, "u", "h", "", nil)

	cases := map[string]string{
		"missing":      "",
		"no scheme":    "token-only",
		"basic scheme": "Basic abc",
		"garbage":      "Bearer not.a.jwt",
		"wrong key":    "Bearer " + wrongKey,
		"wrong issuer": "Bearer " + wrongIssuer,
		"expired":      "Bearer " + expired,
	}
	for name, value := range cases {
		header := "Authorization"
		if value == "" {
			header = ""
		}
		_, _, err := serveWith(JWTMiddleware(testCfg), header, value)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %v", name, err)
		}
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	_, ctx, err := serveWith(DevAuthMiddleware(), DevUserHeader, "user-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := UserIDFromContext(ctx); got != "user-42" {
		t.Errorf("expected user-42, got %q", got)
	}
	if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != "super-admin" {
		t.Errorf("expected super-admin, got %v", roles)
	}

	_, ctx, _ = serveWith(DevAuthMiddleware(), "", "")
	if got := UserIDFromContext(ctx); got != "dev-user" {
		t.Errorf("expected dev-user default, got %q", got)
	}
}
