package flow

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/patientflow/internal/domain/assignment"
	"github.com/ehr/patientflow/internal/domain/billing"
	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/domain/patient"
	"github.com/ehr/patientflow/internal/platform/auth"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinical := auth.RequireRole("doctor", "nurse", "department-operator")
	api.POST("/patient-flow/register", h.RegisterPatient, auth.RequireRole("hospital-admin", "receptionist"))
	api.POST("/patient-flow/assign", h.AssignToDepartment, auth.RequireRole("hospital-admin", "receptionist", "doctor", "nurse", "department-operator"))
	api.POST("/patient-flow/transfer", h.TransferPatient, clinical)
	api.POST("/patient-flow/complete", h.CompletePatientJourney, auth.RequireRole("hospital-admin", "receptionist", "pharmacist", "department-operator"))
	api.POST("/patients/:id/deceased", h.MarkDeceased, auth.RequireRole("hospital-admin", "doctor"))
	api.POST("/patients/:id/critical-results", h.ReportCriticalResult, auth.RequireRole("lab-technician", "radiologist", "doctor"))

	api.GET("/queue/:department", h.GetQueue, auth.RequireRole("hospital-admin", "doctor", "nurse", "department-operator"))
	api.GET("/queue/:department/stats", h.DepartmentStats, auth.RequireRole("hospital-admin", "doctor", "nurse", "department-operator"))
	api.PUT("/queue/:id/assign", h.AssignToDoctor, auth.RequireRole("hospital-admin", "doctor", "nurse"))
	api.PUT("/queue/:id/complete", h.CompleteAssignment, auth.RequireRole("doctor"))

	api.POST("/transfers/:id/accept", h.AcceptTransfer, clinical)
	api.GET("/transfers/pending", h.PendingTransfers, auth.RequireRole("hospital-admin", "doctor", "nurse", "department-operator"))
}

func (h *Handler) actor(c echo.Context) (Actor, error) {
	id, err := auth.UserID(c)
	if err != nil {
		return Actor{}, err
	}
	return h.engine.ResolveActor(c.Request().Context(), id)
}

func pathID(c echo.Context, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+what+" id")
	}
	return id, nil
}

func parseDepartment(raw string) (hospital.DepartmentName, error) {
	d, err := hospital.ParseDepartmentName(raw)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return d, nil
}

func parsePriority(raw string) (assignment.Priority, error) {
	p, err := assignment.ParsePriority(raw)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return p, nil
}

type registerRequest struct {
	patient.Demographics
	Department string `json:"department"`
	Priority   string `json:"priority"`
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	dept, err := parseDepartment(req.Department)
	if err != nil {
		return err
	}
	prio, err := parsePriority(req.Priority)
	if err != nil {
		return err
	}
	res, err := h.engine.RegisterPatient(c.Request().Context(), actor, req.Demographics, dept, prio)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

type assignRequest struct {
	PatientID  uuid.UUID `json:"patient_id"`
	Department string    `json:"department"`
	Priority   string    `json:"priority"`
}

func (h *Handler) AssignToDepartment(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	dept, err := parseDepartment(req.Department)
	if err != nil {
		return err
	}
	prio, err := parsePriority(req.Priority)
	if err != nil {
		return err
	}
	res, err := h.engine.AssignToDepartment(c.Request().Context(), actor, req.PatientID, dept, prio)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

type transferRequest struct {
	PatientID      uuid.UUID `json:"patient_id"`
	FromDepartment string    `json:"from_department"`
	ToDepartment   string    `json:"to_department"`
	Reason         string    `json:"reason"`
	Priority       string    `json:"priority"`
}

func (h *Handler) TransferPatient(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	var body transferRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req := TransferRequest{PatientID: body.PatientID, Reason: body.Reason}
	if req.From, err = parseDepartment(body.FromDepartment); err != nil {
		return err
	}
	if req.To, err = parseDepartment(body.ToDepartment); err != nil {
		return err
	}
	if req.Priority, err = parsePriority(body.Priority); err != nil {
		return err
	}
	res, err := h.engine.TransferPatient(c.Request().Context(), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

type completeJourneyRequest struct {
	PatientID      uuid.UUID        `json:"patient_id"`
	BillingDetails *billing.Details `json:"billing_details"`
}

func (h *Handler) CompletePatientJourney(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	var req completeJourneyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.engine.CompletePatientJourney(c.Request().Context(), actor, req.PatientID, req.BillingDetails)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) MarkDeceased(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "patient")
	if err != nil {
		return err
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.engine.MarkDeceased(c.Request().Context(), actor, id, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ReportCriticalResult(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "patient")
	if err != nil {
		return err
	}
	var req struct {
		TestType string `json:"test_type"`
		Result   string `json:"result"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.engine.ReportCriticalResult(c.Request().Context(), actor, id, req.TestType, req.Result)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, d)
}

func listResponse(items []*assignment.Assignment) map[string]interface{} {
	if items == nil {
		items = []*assignment.Assignment{}
	}
	return map[string]interface{}{"count": len(items), "data": items}
}

func (h *Handler) GetQueue(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	dept, err := parseDepartment(c.Param("department"))
	if err != nil {
		return err
	}
	q, err := h.engine.GetQueue(c.Request().Context(), actor, dept)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(q))
}

func (h *Handler) DepartmentStats(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	dept, err := parseDepartment(c.Param("department"))
	if err != nil {
		return err
	}
	s, err := h.engine.DepartmentStats(c.Request().Context(), actor, dept)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) AssignToDoctor(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "assignment")
	if err != nil {
		return err
	}
	var req struct {
		DoctorID uuid.UUID `json:"doctor_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.engine.AssignToDoctor(c.Request().Context(), actor, id, req.DoctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CompleteAssignment(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "assignment")
	if err != nil {
		return err
	}
	var req struct {
		Notes            string `json:"notes"`
		RequiresFollowUp bool   `json:"requires_follow_up"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.engine.CompleteAssignment(c.Request().Context(), actor, id, req.Notes, req.RequiresFollowUp)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) AcceptTransfer(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "assignment")
	if err != nil {
		return err
	}
	res, err := h.engine.AcceptTransfer(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// PendingTransfers defaults to the caller's own department.
func (h *Handler) PendingTransfers(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	var dept hospital.DepartmentName
	if raw := c.QueryParam("department"); raw != "" {
		if dept, err = parseDepartment(raw); err != nil {
			return err
		}
	} else if actor.Department != nil {
		dept = *actor.Department
	} else {
		return echo.NewHTTPError(http.StatusBadRequest, "department is required")
	}
	items, err := h.engine.PendingTransfers(c.Request().Context(), actor, dept)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(items))
}
