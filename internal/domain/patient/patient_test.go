package patient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/platform/auth"
	"github.com/ehr/patientflow/pkg/apperr"
)

func demo() Demographics {
	return Demographics{FirstName: " Jane ", LastName: "Wanjiru", Gender: "Female", Phone: "0700000000", BloodType: "O+"}
}

func TestNew(t *testing.T) {
	now := time.Now()
	p, err := New(uuid.New(), demo(), now)
	require.NoError(t, err)
	assert.Equal(t, StatusRegistered, p.Status)
	assert.Nil(t, p.CurrentDepartment)
	assert.Equal(t, "Jane Wanjiru", p.FullName())

	future := now.Add(48 * time.Hour)
	bad := []Demographics{
		{LastName: "X"},
		{FirstName: "A", LastName: "B", Gender: "Robot"},
		{FirstName: "A", LastName: "B", BloodType: "Z"},
		{FirstName: "A", LastName: "B", DateOfBirth: &future},
	}
	for _, d := range bad {
		_, err := New(uuid.New(), d, now)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "%+v", d)
	}
}

func TestPatient_Locate(t *testing.T) {
	p, err := New(uuid.New(), demo(), time.Now())
	require.NoError(t, err)

	p.Locate(hospital.Triage, time.Now())
	assert.True(t, p.In(hospital.Triage))
	assert.False(t, p.In(hospital.Emergency))

	p.Locate("", time.Now())
	assert.Nil(t, p.CurrentDepartment)
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusDischarged.Terminal())
	assert.True(t, StatusDeceased.Terminal())
	assert.False(t, StatusTransferred.Terminal())
}

func TestMemoryRepo_NationalIDUnique(t *testing.T) {
	repo := NewMemoryRepo()
	h := uuid.New()
	id := "12345678"
	d := demo()
	d.NationalID = &id

	a, _ := New(h, d, time.Now())
	require.NoError(t, repo.Create(context.Background(), a))
	b, _ := New(h, d, time.Now())
	assert.True(t, errors.Is(repo.Create(context.Background(), b), ErrAlreadyRegistered))
}

func TestService_GetScopedToHospital(t *testing.T) {
	repo := NewMemoryRepo()
	p, _ := New(uuid.New(), demo(), time.Now())
	require.NoError(t, repo.Create(context.Background(), p))
	svc := NewService(repo)

	got, err := svc.Get(context.Background(), p.HospitalID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = svc.Get(context.Background(), uuid.New(), p.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestHandler_ListFiltersByDepartment(t *testing.T) {
	repo := NewMemoryRepo()
	h := uuid.New()
	for _, dept := range []hospital.DepartmentName{hospital.Triage, hospital.Triage, hospital.Emergency} {
		p, _ := New(h, demo(), time.Now())
		p.Locate(dept, time.Now())
		require.NoError(t, repo.Create(context.Background(), p))
	}

	e := echo.New()
	e.Use(auth.DevAuthMiddleware())
	NewHandler(NewService(repo)).RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients?department=triage&hospital_id="+h.String(), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
}
