package schedules

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/atendo/booking-core/internal/http/middleware"
	"github.com/atendo/booking-core/internal/notification"
	"github.com/atendo/booking-core/pkg/domain"
	"github.com/atendo/booking-core/pkg/schedule"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

type memStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.Appointment
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[uuid.UUID]*domain.Appointment)}
}

func (s *memStore) Insert(_ context.Context, a *domain.Appointment, _ []domain.AppointmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

func (s *memStore) FindByID(_ context.Context, tenantID, id uuid.UUID) (*domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok || a.TenantID != tenantID {
		return nil, domain.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) FindActiveForService(_ context.Context, tenantID, serviceID uuid.UUID, excludeID uuid.UUID) ([]*domain.Appointment, error) {
	return nil, nil
}

func (s *memStore) Update(_ context.Context, a *domain.Appointment, _ []domain.AppointmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.ID]; !ok {
		return domain.ErrAppointmentNotFound
	}
	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

func (s *memStore) ListByPeriod(_ context.Context, tenantID uuid.UUID, from, to time.Time, statuses []domain.AppointmentStatus) ([]*domain.Appointment, error) {
	return nil, nil
}

func (s *memStore) CountByStatus(_ context.Context, tenantID uuid.UUID) (map[domain.AppointmentStatus]int, error) {
	return map[domain.AppointmentStatus]int{}, nil
}

func (s *memStore) CountActive(_ context.Context, tenantID uuid.UUID, from time.Time, to *time.Time) (int, error) {
	return 0, nil
}

type recordingMailer struct {
	mu            sync.Mutex
	cancellations []string
	failSend      bool
}

func (m *recordingMailer) SendAppointmentEmail(to string, startAt time.Time, location, confirmURL, cancelURL string, expiresAt time.Time) error {
	return nil
}

func (m *recordingMailer) SendCancellationEmail(to string, startAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend {
		return errors.New("smtp unavailable")
	}
	m.cancellations = append(m.cancellations, to)
	return nil
}

type cancelEnv struct {
	store  *memStore
	mailer *recordingMailer
	server http.Handler
	tenant uuid.UUID
}

func newCancelEnv(t *testing.T) *cancelEnv {
	t.Helper()
	env := &cancelEnv{
		store:  newMemStore(),
		mailer: &recordingMailer{},
		tenant: uuid.New(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := domain.ClockFunc(func() time.Time { return at(10) })
	svc := schedule.NewService(env.store, schedule.NewStatusMachine(clock), clock, logger)
	h := NewHandler(logger, svc, nil, env.mailer, notification.NewLinkBuilder("http://app.test"), time.Hour)

	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, uuid.New())
			ctx = context.WithValue(ctx, middleware.AuthTenantIDKey, env.tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	r := chi.NewRouter()
	h.RegisterRoutes(r, auth)
	env.server = r
	return env
}

func (env *cancelEnv) seedAppointment(t *testing.T) *domain.Appointment {
	t.Helper()
	a := &domain.Appointment{
		ID: uuid.New(), TenantID: env.tenant, ServiceID: uuid.New(),
		StartAt: at(60), EndAt: at(120), Status: domain.StatusScheduled,
	}
	if err := env.store.Insert(context.Background(), a, nil); err != nil {
		t.Fatalf("seed insert error: %v", err)
	}
	return a
}

func (env *cancelEnv) cancel(t *testing.T, id uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/schedules/"+id.String()+"/cancel", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	return w
}

func TestCancelSendsNotice(t *testing.T) {
	env := newCancelEnv(t)
	a := env.seedAppointment(t)

	w := env.cancel(t, a.ID, `{"reason":"client called","notify_email":"client@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp AppointmentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Status != string(domain.StatusCancelled) {
		t.Errorf("status = %s, want cancelled", resp.Status)
	}
	if len(env.mailer.cancellations) != 1 || env.mailer.cancellations[0] != "client@example.com" {
		t.Errorf("cancellation notices = %v, want one to client@example.com", env.mailer.cancellations)
	}
}

func TestCancelWithoutRecipientSendsNothing(t *testing.T) {
	env := newCancelEnv(t)
	a := env.seedAppointment(t)

	w := env.cancel(t, a.ID, `{"reason":"double booked"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if len(env.mailer.cancellations) != 0 {
		t.Errorf("cancellation notices = %v, want none", env.mailer.cancellations)
	}
}

func TestCancelRejectsBadRecipient(t *testing.T) {
	env := newCancelEnv(t)
	a := env.seedAppointment(t)

	w := env.cancel(t, a.ID, `{"notify_email":"not-an-address"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	// The appointment is untouched.
	got, err := env.store.FindByID(context.Background(), env.tenant, a.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.Status != domain.StatusScheduled {
		t.Errorf("status = %s, want scheduled", got.Status)
	}
}

func TestCancelSurvivesMailFailure(t *testing.T) {
	env := newCancelEnv(t)
	env.mailer.failSend = true
	a := env.seedAppointment(t)

	w := env.cancel(t, a.ID, `{"notify_email":"client@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	got, err := env.store.FindByID(context.Background(), env.tenant, a.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.Status != domain.StatusCancelled {
		t.Errorf("status = %s, want cancelled despite mail failure", got.Status)
	}
}
