package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runRequireRole(t *testing.T, userRoles []string, required ...string) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserRolesKey, userRoles))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	return RequireRole(required...)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
}

func TestRequireRole_Allowed(t *testing.T) {
	if err := runRequireRole(t, []string{"nurse"}, "doctor", "nurse"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestRequireRole_SuperAdminBypass(t *testing.T) {
	if err := runRequireRole(t, []string{"super-admin"}, "doctor"); err != nil {
		t.Errorf("expected super-admin to pass, got %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	err := runRequireRole(t, []string{"receptionist"}, "doctor")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireRole_NoRoles(t *testing.T) {
	if err := runRequireRole(t, nil, "doctor"); err == nil {
		t.Error("expected error with no roles")
	}
}
