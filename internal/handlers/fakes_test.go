package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"healthcare-portal-server/internal/insight"
	"healthcare-portal-server/internal/middleware"
	"healthcare-portal-server/internal/models"
	"healthcare-portal-server/internal/prediction"
	"healthcare-portal-server/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore is an in-memory implementation of every store interface.
type fakeStore struct {
	mu           sync.Mutex
	users        map[string]*models.User
	tokens       map[string]*models.RefreshToken
	predictions  map[string]*models.PredictionRecord
	appointments map[string]*models.Appointment
	records      map[string]*models.MedicalRecord
	failWith     error
	clock        time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[string]*models.User),
		tokens:       make(map[string]*models.RefreshToken),
		predictions:  make(map[string]*models.PredictionRecord),
		appointments: make(map[string]*models.Appointment),
		records:      make(map[string]*models.MedicalRecord),
		clock:        time.Unix(1_700_000_000, 0),
	}
}

func (s *fakeStore) assignID(b *models.BaseModel) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.clock = s.clock.Add(time.Second)
	b.CreatedAt = s.clock
	b.UpdatedAt = s.clock
}

func (s *fakeStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.assignID(&user.BaseModel)
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *fakeStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *fakeStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) SaveUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *fakeStore) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []models.User
	for _, u := range s.users {
		if role == "" || u.Role == role {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (s *fakeStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.users, id)
	for key, r := range s.predictions {
		if r.UserID == id {
			delete(s.predictions, key)
		}
	}
	for key, t := range s.tokens {
		if t.UserID == id {
			delete(s.tokens, key)
		}
	}
	for key, a := range s.appointments {
		if a.Involves(id) {
			delete(s.appointments, key)
		}
	}
	for key, r := range s.records {
		if r.PatientID == id || r.DoctorID == id {
			delete(s.records, key)
		}
	}
	return nil
}

func (s *fakeStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignID(&token.BaseModel)
	cp := *token
	s.tokens[token.Token] = &cp
	return nil
}

func (s *fakeStore) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.tokens[token.Token] = &cp
	return nil
}

func (s *fakeStore) CreatePrediction(ctx context.Context, record *models.PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.assignID(&record.BaseModel)
	cp := *record
	s.predictions[record.ID] = &cp
	return nil
}

func (s *fakeStore) ListPredictions(ctx context.Context, userID string) ([]models.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []models.PredictionRecord
	for _, r := range s.predictions {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) GetPrediction(ctx context.Context, id string) (*models.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.predictions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) DeletePrediction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.predictions[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.predictions, id)
	return nil
}

func (s *fakeStore) CreateAppointment(ctx context.Context, appointment *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.assignID(&appointment.BaseModel)
	cp := *appointment
	s.appointments[appointment.ID] = &cp
	return nil
}

func (s *fakeStore) ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []models.Appointment
	for _, a := range s.appointments {
		if filter.PatientID != "" && a.PatientID != filter.PatientID {
			continue
		}
		if filter.DoctorID != "" && a.DoctorID != filter.DoctorID {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *fakeStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) SaveAppointment(ctx context.Context, appointment *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	cp := *appointment
	s.appointments[appointment.ID] = &cp
	return nil
}

func (s *fakeStore) DeleteAppointment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.appointments, id)
	return nil
}

func (s *fakeStore) DoctorBooked(ctx context.Context, doctorID string, start, end time.Time, excludeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	for _, a := range s.appointments {
		if a.DoctorID == doctorID && a.ID != excludeID && a.Status.IsOpen() && a.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateMedicalRecord(ctx context.Context, record *models.MedicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.assignID(&record.BaseModel)
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func (s *fakeStore) ListMedicalRecords(ctx context.Context, patientID string) ([]models.MedicalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []models.MedicalRecord
	for _, r := range s.records {
		if r.PatientID == patientID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitDate.After(out[j].VisitDate) })
	return out, nil
}

func (s *fakeStore) GetMedicalRecord(ctx context.Context, id string) (*models.MedicalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) SaveMedicalRecord(ctx context.Context, record *models.MedicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func (s *fakeStore) DeleteMedicalRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// fakeEngine returns canned results and records what it was asked.
type fakeEngine struct {
	results []prediction.Result
	calls   [][]string
}

func (e *fakeEngine) Predict(ctx context.Context, symptoms []string) []prediction.Result {
	e.calls = append(e.calls, append([]string(nil), symptoms...))
	return e.results
}

type fakeProvider struct {
	analysis *insight.Analysis
	err      error
	calls    []insight.Request
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Analyze(ctx context.Context, req insight.Request) (*insight.Analysis, error) {
	p.calls = append(p.calls, req)
	if p.err != nil {
		return nil, p.err
	}
	return p.analysis, nil
}

var errDatabaseDown = errors.New("database down")

// withUser stands in for AuthMiddleware in handler tests.
func withUser(id string, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != "" {
			middleware.SetUser(c, id, role)
		}
		c.Next()
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the envelope's data field into out.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) utils.ResponseData {
	t.Helper()
	var envelope struct {
		utils.ResponseData
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("decode data %s: %v", envelope.Data, err)
		}
	}
	return envelope.ResponseData
}
