package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/platform/auth"
)

func dept(d hospital.DepartmentName) *hospital.DepartmentName { return &d }

func seed(t *testing.T, svc *Service, h uuid.UUID, role hospital.Role, d *hospital.DepartmentName) *User {
	t.Helper()
	u := &User{HospitalID: h, Role: role, Department: d, FirstName: "A", LastName: "B", Email: uuid.NewString() + "@example.org"}
	require.NoError(t, svc.Create(context.Background(), u))
	return u
}

func TestService_FindUsersByDepartment(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	h, other := uuid.New(), uuid.New()
	doc := seed(t, svc, h, hospital.RoleDoctor, dept(hospital.Emergency))
	nurse := seed(t, svc, h, hospital.RoleNurse, dept(hospital.Emergency))
	seed(t, svc, h, hospital.RoleReceptionist, dept(hospital.Emergency))
	seed(t, svc, h, hospital.RoleDoctor, dept(hospital.Triage))
	seed(t, svc, other, hospital.RoleDoctor, dept(hospital.Emergency))

	all, err := svc.FindUsersByDepartment(context.Background(), h, hospital.Emergency)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	clinical, err := svc.FindUsersByDepartment(context.Background(), h, hospital.Emergency, hospital.RoleDoctor, hospital.RoleNurse)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{doc.ID, nurse.ID}, clinical)
}

func TestService_FindUsersByHospital(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	h := uuid.New()
	seed(t, svc, h, hospital.RoleDoctor, nil)
	seed(t, svc, h, hospital.RoleHospitalAdmin, nil)
	seed(t, svc, uuid.New(), hospital.RoleDoctor, nil)

	ids, err := svc.FindUsersByHospital(context.Background(), h)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestService_SetDepartment(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	u := seed(t, svc, uuid.New(), hospital.RoleNurse, nil)

	require.NoError(t, svc.SetDepartment(context.Background(), u.ID, dept(hospital.Triage)))
	got, err := svc.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, got.InDepartment(hospital.Triage))

	err = svc.SetDepartment(context.Background(), uuid.New(), nil)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestService_ExistingUsers(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	u := seed(t, svc, uuid.New(), hospital.RoleNurse, nil)

	got, err := svc.ExistingUsers(context.Background(), []uuid.UUID{u.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{u.ID}, got)
}

func TestService_CreateValidates(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	err := svc.Create(context.Background(), &User{HospitalID: uuid.New(), Role: "wizard", Email: "x@example.org"})
	assert.Error(t, err)
	err = svc.Create(context.Background(), &User{Role: hospital.RoleDoctor, Email: "x@example.org"})
	assert.Error(t, err)
}

func TestHandler_Create(t *testing.T) {
	e := echo.New()
	e.Use(auth.DevAuthMiddleware())
	NewHandler(NewService(NewMemoryRepo())).RegisterRoutes(e.Group("/api/v1"))

	body := `{"role":"nurse","department":"triage","first_name":"Ann","last_name":"Njeri","email":"ANN@example.org"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users?hospital_id="+uuid.NewString(), strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"department":"TRIAGE"`)
	assert.Contains(t, rec.Body.String(), `"email":"ann@example.org"`)
}
