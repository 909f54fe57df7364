package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/platform/auth"
	"github.com/ehr/patientflow/internal/platform/websocket"
	"github.com/ehr/patientflow/pkg/apperr"
	"github.com/ehr/patientflow/pkg/retry"
)

type fakeDirectory struct {
	byDept     map[hospital.DepartmentName][]uuid.UUID
	byHospital []uuid.UUID
	known      map[uuid.UUID]bool
	lastRoles  []hospital.Role
	err        error
}

func (f *fakeDirectory) FindUsersByDepartment(_ context.Context, _ uuid.UUID, dept hospital.DepartmentName, roles ...hospital.Role) ([]uuid.UUID, error) {
	f.lastRoles = roles
	return f.byDept[dept], f.err
}

func (f *fakeDirectory) FindUsersByHospital(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return f.byHospital, f.err
}

func (f *fakeDirectory) ExistingUsers(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []uuid.UUID
	for _, id := range ids {
		if f.known[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []websocket.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e websocket.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

// flakyRepo fails the first n CreateBatch calls.
type flakyRepo struct {
	*MemoryRepo
	failures int
	calls    int
}

func (r *flakyRepo) CreateBatch(ctx context.Context, ns []*Notification) error {
	r.calls++
	if r.calls <= r.failures {
		return errors.New("database unavailable")
	}
	return r.MemoryRepo.CreateBatch(ctx, ns)
}

func testRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func alert(hospitalID uuid.UUID, to Recipients) Message {
	return Message{
		HospitalID: hospitalID,
		To:         to,
		Text:       "New patient registered",
		Payload:    DepartmentAlertPayload{Department: hospital.Reception, Event: "registered"},
	}
}

func TestDispatcher_DepartmentRecipients(t *testing.T) {
	h := uuid.New()
	u1, u2 := uuid.New(), uuid.New()
	dir := &fakeDirectory{byDept: map[hospital.DepartmentName][]uuid.UUID{hospital.Reception: {u1, u2, u1}}}
	repo := NewMemoryRepo()
	pub := &recordingPublisher{}
	d := NewDispatcher(repo, dir, pub, NewMemoryQueue(8), testRetry(), zerolog.Nop())

	del := d.Notify(context.Background(), alert(h, ToDepartment(hospital.Reception, hospital.RoleReceptionist)))

	assert.Equal(t, 2, del.Recipients)
	assert.False(t, del.Queued)
	assert.Equal(t, []hospital.Role{hospital.RoleReceptionist}, dir.lastRoles)

	all := repo.All()
	require.Len(t, all, 2)
	for _, n := range all {
		assert.Equal(t, h, n.HospitalID)
		assert.Equal(t, TypeDepartmentAlert, n.Type)
		assert.False(t, n.Read)
	}
	require.Len(t, pub.events, 2)
	assert.Equal(t, websocket.UserTopic(all[0].Recipient.String()), pub.events[0].Topic)
}

func TestDispatcher_UnknownUsersSkipped(t *testing.T) {
	known, unknown := uuid.New(), uuid.New()
	dir := &fakeDirectory{known: map[uuid.UUID]bool{known: true}}
	repo := NewMemoryRepo()
	d := NewDispatcher(repo, dir, nil, NewMemoryQueue(8), testRetry(), zerolog.Nop())

	del := d.Notify(context.Background(), alert(uuid.New(), ToUsers(known, unknown)))

	assert.Equal(t, 1, del.Recipients)
	all := repo.All()
	require.Len(t, all, 1)
	assert.Equal(t, known, all[0].Recipient)
}

func TestDispatcher_NoRecipientsIsNotAnError(t *testing.T) {
	d := NewDispatcher(NewMemoryRepo(), &fakeDirectory{}, nil, NewMemoryQueue(8), testRetry(), zerolog.Nop())

	del := d.Notify(context.Background(), alert(uuid.New(), ToHospital()))

	assert.Equal(t, 0, del.Recipients)
	assert.False(t, del.Queued)
}

func TestDispatcher_PublishFailureStillStores(t *testing.T) {
	u := uuid.New()
	repo := NewMemoryRepo()
	pub := &recordingPublisher{err: errors.New("redis down")}
	d := NewDispatcher(repo, &fakeDirectory{byHospital: []uuid.UUID{u}}, pub, NewMemoryQueue(8), testRetry(), zerolog.Nop())

	del := d.Notify(context.Background(), alert(uuid.New(), ToHospital()))

	assert.Equal(t, 1, del.Recipients)
	assert.Len(t, repo.All(), 1)
}

func TestDispatcher_StoreFailureQueuesRetry(t *testing.T) {
	u := uuid.New()
	repo := &flakyRepo{MemoryRepo: NewMemoryRepo(), failures: 1}
	queue := NewMemoryQueue(8)
	d := NewDispatcher(repo, &fakeDirectory{byHospital: []uuid.UUID{u}}, nil, queue, testRetry(), zerolog.Nop())

	del := d.Notify(context.Background(), alert(uuid.New(), ToHospital()))

	assert.True(t, del.Queued)
	assert.Equal(t, 1, queue.Len())
	assert.Empty(t, repo.All())

	job, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, del.MessageID, job.Message.ID)

	w := NewWorker(d, queue, zerolog.Nop())
	w.Process(context.Background(), job)

	all := repo.All()
	require.Len(t, all, 1)
	assert.Equal(t, notificationID(del.MessageID, u), all[0].ID)
	assert.Equal(t, 0, queue.Len())
}

func TestWorker_DropsAfterMaxAttempts(t *testing.T) {
	repo := &flakyRepo{MemoryRepo: NewMemoryRepo(), failures: 100}
	queue := NewMemoryQueue(8)
	cfg := testRetry()
	d := NewDispatcher(repo, &fakeDirectory{byHospital: []uuid.UUID{uuid.New()}}, nil, queue, cfg, zerolog.Nop())
	w := NewWorker(d, queue, zerolog.Nop())

	d.Notify(context.Background(), alert(uuid.New(), ToHospital()))
	for i := 0; i < cfg.MaxAttempts; i++ {
		if queue.Len() == 0 {
			break
		}
		job, err := queue.Dequeue(context.Background())
		require.NoError(t, err)
		w.Process(context.Background(), job)
	}

	assert.Equal(t, 0, queue.Len())
	assert.Equal(t, cfg.MaxAttempts, repo.calls)
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	queue := NewMemoryQueue(1)
	d := NewDispatcher(NewMemoryRepo(), &fakeDirectory{}, nil, queue, testRetry(), zerolog.Nop())
	w := NewWorker(d, queue, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestDispatcher_RedeliveryIsIdempotent(t *testing.T) {
	u := uuid.New()
	repo := NewMemoryRepo()
	d := NewDispatcher(repo, &fakeDirectory{byHospital: []uuid.UUID{u}}, nil, NewMemoryQueue(8), testRetry(), zerolog.Nop())
	msg := alert(uuid.New(), ToHospital())
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()

	_, err := d.Deliver(context.Background(), msg)
	require.NoError(t, err)
	_, err = d.Deliver(context.Background(), msg)
	require.NoError(t, err)

	assert.Len(t, repo.All(), 1)
}

func TestMessage_JSONRoundTripKeepsPayloadType(t *testing.T) {
	pid := uuid.New()
	msg := Message{
		ID:      uuid.New(),
		To:      ToDepartment(hospital.Laboratory),
		Text:    "transfer",
		Payload: PatientTransferPayload{PatientID: pid, FromDepartment: hospital.Emergency, ToDepartment: hospital.Laboratory},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"PATIENT_TRANSFER"`)

	var got Message
	require.NoError(t, json.Unmarshal(data, &got))
	p, ok := got.Payload.(PatientTransferPayload)
	require.True(t, ok)
	assert.Equal(t, pid, p.PatientID)
	assert.Equal(t, hospital.Laboratory, got.To.Department)
}

func TestDecodePayload_UnknownType(t *testing.T) {
	_, err := DecodePayload("BOGUS", []byte(`{}`))
	assert.Error(t, err)
}

func TestService_MarkRead(t *testing.T) {
	owner, other := uuid.New(), uuid.New()
	repo := NewMemoryRepo()
	n := &Notification{ID: uuid.New(), Recipient: owner, Type: TypeNewAssignment, Payload: NewAssignmentPayload{}, CreatedAt: time.Now()}
	require.NoError(t, repo.CreateBatch(context.Background(), []*Notification{n}))
	svc := NewService(repo)

	_, err := svc.MarkRead(context.Background(), n.ID, other)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	first, err := svc.MarkRead(context.Background(), n.ID, owner)
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)
	assert.True(t, first.Read)

	second, err := svc.MarkRead(context.Background(), n.ID, owner)
	require.NoError(t, err)
	assert.True(t, first.ReadAt.Equal(*second.ReadAt), "read time must not move")
}

func TestService_ListForUserUnreadOnly(t *testing.T) {
	user := uuid.New()
	repo := NewMemoryRepo()
	base := time.Now()
	var batch []*Notification
	for i := 0; i < 3; i++ {
		batch = append(batch, &Notification{
			ID: uuid.New(), Recipient: user, Type: TypeNewAssignment, Payload: NewAssignmentPayload{},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	batch = append(batch, &Notification{ID: uuid.New(), Recipient: uuid.New(), Type: TypeNewAssignment, Payload: NewAssignmentPayload{}, CreatedAt: base})
	require.NoError(t, repo.CreateBatch(context.Background(), batch))
	svc := NewService(repo)
	_, err := svc.MarkRead(context.Background(), batch[0].ID, user)
	require.NoError(t, err)

	all, total, err := svc.ListForUser(context.Background(), user, false, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, batch[2].ID, all[0].ID, "newest first")

	unread, total, err := svc.ListForUser(context.Background(), user, true, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, unread, 2)
}

func TestHandler_ListRequiresUser(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewService(NewMemoryRepo()))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()

	err := h.List(e.NewContext(req, rec))

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestHandler_List(t *testing.T) {
	user := uuid.New()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateBatch(context.Background(), []*Notification{
		{ID: uuid.New(), Recipient: user, Message: "hello", Type: TypeNewAssignment, Payload: NewAssignmentPayload{}, CreatedAt: time.Now()},
	}))

	e := echo.New()
	e.Use(auth.DevAuthMiddleware())
	NewHandler(NewService(repo)).RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?unread=true", nil)
	req.Header.Set(auth.DevUserHeader, user.String())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data  []json.RawMessage `json:"data"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Len(t, body.Data, 1)
}

func TestCriticalResult(t *testing.T) {
	h, doc, pid := uuid.New(), uuid.New(), uuid.New()
	msg := CriticalResult(h, doc, pid, nil, "Potassium", "6.8 mmol/L")
	assert.Equal(t, TypeCriticalResult, msg.Type())
	assert.Equal(t, []uuid.UUID{doc}, msg.To.Users)
	assert.Equal(t, "Critical Potassium result for patient "+pid.String(), msg.Text)
}
