package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/patientflow/internal/domain/hospital"
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
	api.GET("/patients", h.List)
	api.GET("/patients/:id", h.Get)
}

func (h *Handler) List(c echo.Context) error {
	hospitalID, err := auth.HospitalScope(c)
	if err != nil {
		return err
	}
	f := ListFilter{HospitalID: hospitalID, Status: Status(c.QueryParam("status"))}
	if raw := c.QueryParam("department"); raw != "" {
		if f.Department, err = hospital.ParseDepartmentName(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Get(c echo.Context) error {
	hospitalID, err := auth.HospitalScope(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p, err := h.svc.Get(c.Request().Context(), hospitalID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
