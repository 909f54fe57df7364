package billing

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/patientflow/internal/platform/auth"
	"github.com/ehr/patientflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole("hospital-admin", "receptionist", "department-operator")
	api.GET("/patients/:id/billing", h.ListByPatient, staff)
	api.GET("/billing/:id", h.Get, staff)
	api.POST("/billing/:id/payments", h.RecordPayment, staff)
}

type paymentRequest struct {
	Amount int64         `json:"amount"`
	Method PaymentMethod `json:"method"`
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Record{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid billing id")
	}
	hospitalID, err := auth.HospitalScope(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.Get(c.Request().Context(), hospitalID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) RecordPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid billing id")
	}
	hospitalID, err := auth.HospitalScope(c)
	if err != nil {
		return err
	}
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rec, err := h.svc.RecordPayment(c.Request().Context(), hospitalID, id, req.Amount, req.Method)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
