package department

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/patientflow/internal/domain/directory"
	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/platform/auth"
	"github.com/ehr/patientflow/pkg/apperr"
)

type fixture struct {
	hospital uuid.UUID
	users    *directory.Service
	reg      *Registry
}

func newFixture() *fixture {
	users := directory.NewService(directory.NewMemoryRepo())
	return &fixture{
		hospital: uuid.New(),
		users:    users,
		reg:      NewRegistry(NewMemoryRepo(), users, nil, zerolog.Nop()),
	}
}

func (f *fixture) user(t *testing.T, role hospital.Role) uuid.UUID {
	t.Helper()
	u := &directory.User{HospitalID: f.hospital, Role: role, Email: uuid.NewString() + "@example.org"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func (f *fixture) params(name hospital.DepartmentName, min int, roles ...hospital.Role) Params {
	return Params{HospitalID: f.hospital, Name: name, OperatorRoles: roles, MinOperators: min}
}

func TestNewDepartment(t *testing.T) {
	now := time.Now()
	h := uuid.New()

	d, err := NewDepartment(Params{HospitalID: h, Name: hospital.Laboratory, OperatorRoles: []hospital.Role{hospital.RoleLabTechnician}}, nil, now)
	require.NoError(t, err)
	assert.Equal(t, hospital.CategoryDiagnostic, d.Category)
	assert.Equal(t, DefaultColorCode, d.ColorCode)
	assert.True(t, d.Operational)
	assert.False(t, d.HasCapacity())

	_, err = NewDepartment(Params{HospitalID: h, Name: "MORGUE"}, nil, now)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = NewDepartment(Params{HospitalID: h, Name: hospital.Triage, OperatorRoles: []hospital.Role{hospital.RolePatient}}, nil, now)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = NewDepartment(Params{HospitalID: h, Name: hospital.Triage, OperatorRoles: []hospital.Role{hospital.RoleNurse}},
		[]Member{{ID: uuid.New(), Role: hospital.RoleDoctor}}, now)
	assert.True(t, errors.Is(err, ErrRoleNotPermitted))

	_, err = NewDepartment(Params{HospitalID: h, Name: hospital.Triage, OperatorRoles: []hospital.Role{hospital.RoleNurse}, MinOperators: 2},
		[]Member{{ID: uuid.New(), Role: hospital.RoleNurse}}, now)
	assert.True(t, errors.Is(err, ErrInsufficientOperators))
}

func TestRegistry_Create(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	nurse := f.user(t, hospital.RoleNurse)

	d, err := f.reg.Create(ctx, f.params(hospital.Triage, 1, hospital.RoleNurse), []uuid.UUID{nurse})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{nurse}, d.Operators)

	u, err := f.users.GetUser(ctx, nurse)
	require.NoError(t, err)
	assert.True(t, u.InDepartment(hospital.Triage))

	_, err = f.reg.Create(ctx, f.params(hospital.Triage, 0, hospital.RoleNurse), nil)
	assert.True(t, errors.Is(err, ErrDuplicateDepartment))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestRegistry_CreateInsufficientOperators(t *testing.T) {
	f := newFixture()

	_, err := f.reg.Create(context.Background(), f.params(hospital.Emergency, 2, hospital.RoleDoctor), []uuid.UUID{f.user(t, hospital.RoleDoctor)})

	assert.True(t, errors.Is(err, ErrInsufficientOperators))
	_, err = f.reg.Lookup(context.Background(), f.hospital, hospital.Emergency)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistry_CreateRejectsForeignUser(t *testing.T) {
	f := newFixture()
	stranger := &directory.User{HospitalID: uuid.New(), Role: hospital.RoleDoctor, Email: "s@example.org"}
	require.NoError(t, f.users.Create(context.Background(), stranger))

	_, err := f.reg.Create(context.Background(), f.params(hospital.Emergency, 0, hospital.RoleDoctor), []uuid.UUID{stranger.ID})

	assert.True(t, errors.Is(err, directory.ErrUserNotFound))
}

func TestRegistry_AddOperator(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d, err := f.reg.Create(ctx, f.params(hospital.Emergency, 0, hospital.RoleDoctor, hospital.RoleNurse), nil)
	require.NoError(t, err)
	ok, err := f.reg.HasCapacity(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	doc := f.user(t, hospital.RoleDoctor)
	d, err = f.reg.AddOperator(ctx, d.ID, doc)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{doc}, d.Operators)

	ok, err = f.reg.HasCapacity(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.reg.AddOperator(ctx, d.ID, doc)
	assert.True(t, errors.Is(err, ErrAlreadyMember))

	_, err = f.reg.AddOperator(ctx, d.ID, f.user(t, hospital.RolePharmacist))
	assert.True(t, errors.Is(err, ErrRoleNotPermitted))

	_, err = f.reg.AddOperator(ctx, uuid.New(), doc)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistry_RemoveOperatorKeepsMinimum(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a, b := f.user(t, hospital.RoleNurse), f.user(t, hospital.RoleNurse)
	d, err := f.reg.Create(ctx, f.params(hospital.Triage, 1, hospital.RoleNurse), []uuid.UUID{a, b})
	require.NoError(t, err)

	d, err = f.reg.RemoveOperator(ctx, d.ID, a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b}, d.Operators)
	u, err := f.users.GetUser(ctx, a)
	require.NoError(t, err)
	assert.Nil(t, u.Department)

	_, err = f.reg.RemoveOperator(ctx, d.ID, b)
	assert.True(t, errors.Is(err, ErrInsufficientOperators))

	_, err = f.reg.RemoveOperator(ctx, d.ID, a)
	assert.True(t, errors.Is(err, ErrNotMember))

	got, err := f.reg.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(got.Operators), got.MinOperators)
}

func TestRegistry_SetOperational(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d, err := f.reg.Create(ctx, f.params(hospital.Radiology, 0, hospital.RoleRadiologist), nil)
	require.NoError(t, err)

	d, err = f.reg.SetOperational(ctx, d.ID, false)
	require.NoError(t, err)
	assert.False(t, d.Operational)

	got, err := f.reg.Lookup(ctx, f.hospital, hospital.Radiology)
	require.NoError(t, err)
	assert.False(t, got.Operational)
}

func TestRegistry_OnboardHospitalIsRerunnable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.reg.Create(ctx, f.params(hospital.Triage, 0, hospital.RoleNurse), nil)
	require.NoError(t, err)

	created, err := f.reg.OnboardHospital(ctx, f.hospital)
	require.NoError(t, err)
	assert.Len(t, created, len(hospital.StandardDepartments())-1)

	again, err := f.reg.OnboardHospital(ctx, f.hospital)
	require.NoError(t, err)
	assert.Empty(t, again)

	all, err := f.reg.List(ctx, f.hospital)
	require.NoError(t, err)
	assert.Len(t, all, len(hospital.StandardDepartments()))
	for _, d := range all {
		assert.Zero(t, d.MinOperators)
	}
}

func TestHandler_CreateAndList(t *testing.T) {
	f := newFixture()
	e := echo.New()
	e.Use(auth.DevAuthMiddleware())
	NewHandler(f.reg).RegisterRoutes(e.Group("/api/v1"))

	body := `{"name":"pharmacy","operator_roles":["pharmacist"],"min_operators":0,"available_beds":0}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/departments?hospital_id="+f.hospital.String(), strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name":"PHARMACY"`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/departments?hospital_id="+f.hospital.String(), nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"category":"SUPPORT"`)
}
