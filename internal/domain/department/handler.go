package department

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/platform/auth"
)

type Handler struct {
	reg *Registry
}

func NewHandler(reg *Registry) *Handler {
	return &Handler{reg: reg}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := auth.RequireRole("hospital-admin")
	api.GET("/departments", h.List)
	api.GET("/departments/:id", h.Get)
	api.POST("/departments", h.Create, admin)
	api.PATCH("/departments/:id", h.Update, admin)
	api.POST("/departments/:id/operators", h.AddOperator, admin)
	api.DELETE("/departments/:id/operators/:userId", h.RemoveOperator, admin)
	api.POST("/hospitals/onboard", h.Onboard, admin)
}

type createRequest struct {
	Name           string      `json:"name"`
	Category       string      `json:"category,omitempty"`
	OperatorRoles  []string    `json:"operator_roles"`
	Operators      []uuid.UUID `json:"operators"`
	MinOperators   *int        `json:"min_operators,omitempty"`
	AvailableBeds  int         `json:"available_beds"`
	Location       string      `json:"location,omitempty"`
	PhoneExtension string      `json:"phone_extension,omitempty"`
	ColorCode      string      `json:"color_code,omitempty"`
}

type operatorRequest struct {
	UserID uuid.UUID `json:"user_id"`
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
	name, err := hospital.ParseDepartmentName(req.Name)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := Params{
		HospitalID:     hospitalID,
		Name:           name,
		MinOperators:   1,
		AvailableBeds:  req.AvailableBeds,
		Location:       req.Location,
		PhoneExtension: req.PhoneExtension,
		ColorCode:      req.ColorCode,
	}
	if req.MinOperators != nil {
		p.MinOperators = *req.MinOperators
	}
	if req.Category != "" {
		if p.Category, err = hospital.ParseCategory(req.Category); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	for _, raw := range req.OperatorRoles {
		role, err := hospital.ParseRole(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		p.OperatorRoles = append(p.OperatorRoles, role)
	}

	d, err := h.reg.Create(c.Request().Context(), p, req.Operators)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) List(c echo.Context) error {
	hospitalID, err := auth.HospitalScope(c)
	if err != nil {
		return err
	}
	depts, err := h.reg.List(c.Request().Context(), hospitalID)
	if err != nil {
		return err
	}
	if depts == nil {
		depts = []*Department{}
	}
	return c.JSON(http.StatusOK, depts)
}

func (h *Handler) Get(c echo.Context) error {
	d, err := h.scoped(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Update(c echo.Context) error {
	d, err := h.scoped(c)
	if err != nil {
		return err
	}
	var p Patch
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err = h.reg.Update(c.Request().Context(), d.ID, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) AddOperator(c echo.Context) error {
	d, err := h.scoped(c)
	if err != nil {
		return err
	}
	var req operatorRequest
	if err := c.Bind(&req); err != nil || req.UserID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	d, err = h.reg.AddOperator(c.Request().Context(), d.ID, req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) RemoveOperator(c echo.Context) error {
	d, err := h.scoped(c)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	d, err = h.reg.RemoveOperator(c.Request().Context(), d.ID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Onboard(c echo.Context) error {
	hospitalID, err := auth.HospitalScope(c)
	if err != nil {
		return err
	}
	created, err := h.reg.OnboardHospital(c.Request().Context(), hospitalID)
	if err != nil {
		return err
	}
	if created == nil {
		created = []*Department{}
	}
	return c.JSON(http.StatusOK, created)
}

// scoped loads the :id department and hides it from other hospitals.
func (h *Handler) scoped(c echo.Context) (*Department, error) {
	hospitalID, err := auth.HospitalScope(c)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid department id")
	}
	d, err := h.reg.Get(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if d.HospitalID != hospitalID {
		return nil, ErrNotFound
	}
	return d, nil
}
