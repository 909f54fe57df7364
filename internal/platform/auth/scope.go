package auth

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HospitalScope returns the hospital a request acts on. Tokens bound to a
// hospital always win; unbound super-admin sessions name one with the
// hospital_id query parameter.
func HospitalScope(c echo.Context) (uuid.UUID, error) {
	raw := HospitalIDFromContext(c.Request().Context())
	if raw == "" {
		raw = c.QueryParam("hospital_id")
	}
	if raw == "" {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "hospital_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid hospital_id")
	}
	return id, nil
}

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "authenticated user id required")
	}
	return id, nil
}
