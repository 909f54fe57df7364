package audit

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/patientflow/internal/platform/auth"
)

type Handler struct {
	log *Log
}

func NewHandler(log *Log) *Handler {
	return &Handler{log: log}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := auth.RequireRole("hospital-admin")
	api.GET("/patients/:id/audit", h.ListByPatient, admin)
	api.GET("/audit/verify", h.Verify, admin)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	hospitalID, err := auth.HospitalScope(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	entries, err := h.log.ListByPatient(c.Request().Context(), hospitalID, id)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": entries})
}

func (h *Handler) Verify(c echo.Context) error {
	hospitalID, err := auth.HospitalScope(c)
	if err != nil {
		return err
	}
	v, err := h.log.Verify(c.Request().Context(), hospitalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}
