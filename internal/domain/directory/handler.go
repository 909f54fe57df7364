package directory

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := auth.RequireRole("hospital-admin")
	api.POST("/users", h.Create, admin)
	api.GET("/users/:id", h.Get, admin)
}

type createRequest struct {
	Role       string  `json:"role"`
	Department *string `json:"department,omitempty"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Email      string  `json:"email"`
}

func (h *Handler) Create(c echo.Context) error {
	hospitalID, err := auth.HospitalScope(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	role, err := hospital.ParseRole(req.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u := &User{
		HospitalID: hospitalID,
		Role:       role,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
	}
	if req.Department != nil {
		dept, err := hospital.ParseDepartmentName(*req.Department)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		u.Department = &dept
	}
	if err := h.svc.Create(c.Request().Context(), u); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if hospitalID, err := auth.HospitalScope(c); err != nil {
		return err
	} else if u.HospitalID != hospitalID {
		return ErrUserNotFound
	}
	return c.JSON(http.StatusOK, u)
}
