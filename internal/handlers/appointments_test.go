package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"healthcare-portal-server/internal/models"
)

var appointmentNow = time.Date(2030, 1, 7, 8, 0, 0, 0, time.UTC)

type appointmentFixture struct {
	store    *fakeStore
	handler  *AppointmentHandler
	patient  *models.User
	other    *models.User
	doctor   *models.User
	doctor2  *models.User
	admin    *models.User
	hospital *models.User
}

func newAppointmentFixture(t *testing.T) *appointmentFixture {
	store := newFakeStore()
	h := NewAppointmentHandler(store)
	h.now = func() time.Time { return appointmentNow }
	return &appointmentFixture{
		store:    store,
		handler:  h,
		patient:  seedUser(t, store, "Jane", "Doe", models.RolePatient),
		other:    seedUser(t, store, "John", "Roe", models.RolePatient),
		doctor:   seedUser(t, store, "Greg", "House", models.RoleDoctor),
		doctor2:  seedUser(t, store, "James", "Wilson", models.RoleDoctor),
		admin:    seedUser(t, store, "Root", "Admin", models.RoleAdmin),
		hospital: seedUser(t, store, "General", "Hospital", models.RoleHospital),
	}
}

func (f *appointmentFixture) router(caller *models.User) *gin.Engine {
	r := gin.New()
	g := r.Group("/appointments", withUser(caller.ID, caller.Role))
	g.POST("", f.handler.CreateAppointment)
	g.GET("", f.handler.GetAppointmentsForUser)
	g.GET("/:id", f.handler.GetAppointmentByID)
	g.PATCH("/:id/status", f.handler.UpdateAppointmentStatus)
	g.PATCH("/:id/reschedule", f.handler.RescheduleAppointment)
	g.DELETE("/:id", f.handler.DeleteAppointment)
	return r
}

// hoursFromNow formats a start time relative to the fixture clock.
func hoursFromNow(h float64) string {
	return appointmentNow.Add(time.Duration(h * float64(time.Hour))).Format(time.RFC3339)
}

func (f *appointmentFixture) book(t *testing.T, patient *models.User, doctor *models.User, start string) models.Appointment {
	t.Helper()
	w := doJSON(t, f.router(patient), http.MethodPost, "/appointments", map[string]interface{}{
		"doctorId":  doctor.ID,
		"startTime": start,
		"reason":    "Follow-up on neck pain",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("book: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var a models.Appointment
	decodeData(t, w, &a)
	return a
}

func TestCreateAppointmentByPatient(t *testing.T) {
	f := newAppointmentFixture(t)
	a := f.book(t, f.patient, f.doctor, hoursFromNow(24))

	if a.ID == "" || a.PatientID != f.patient.ID || a.DoctorID != f.doctor.ID {
		t.Fatalf("unexpected participants: %+v", a)
	}
	if a.Status != models.StatusPending {
		t.Fatalf("expected pending status, got %s", a.Status)
	}
	if got := a.EndTime.Sub(a.StartTime); got != models.DefaultAppointmentDuration {
		t.Fatalf("expected default duration, got %v", got)
	}
	if len(f.store.appointments) != 1 {
		t.Fatal("expected appointment to be persisted")
	}
}

func TestCreateAppointmentRules(t *testing.T) {
	f := newAppointmentFixture(t)
	body := func(doctorID, patientID, start string, extra map[string]interface{}) map[string]interface{} {
		b := map[string]interface{}{"doctorId": doctorID, "startTime": start, "reason": "Check-up"}
		if patientID != "" {
			b["patientId"] = patientID
		}
		for k, v := range extra {
			b[k] = v
		}
		return b
	}

	tests := []struct {
		name   string
		caller *models.User
		body   map[string]interface{}
		want   int
	}{
		{"patient books for someone else", f.patient, body(f.doctor.ID, f.other.ID, hoursFromNow(24), nil), http.StatusForbidden},
		{"doctor books another doctor", f.doctor, body(f.doctor2.ID, f.patient.ID, hoursFromNow(24), nil), http.StatusForbidden},
		{"doctor books own calendar", f.doctor, body(f.doctor.ID, f.patient.ID, hoursFromNow(30), nil), http.StatusCreated},
		{"hospital cannot book", f.hospital, body(f.doctor.ID, f.patient.ID, hoursFromNow(24), nil), http.StatusForbidden},
		{"admin must name patient", f.admin, body(f.doctor.ID, "", hoursFromNow(24), nil), http.StatusBadRequest},
		{"admin books for patient", f.admin, body(f.doctor.ID, f.patient.ID, hoursFromNow(48), nil), http.StatusCreated},
		{"start in the past", f.patient, body(f.doctor.ID, "", hoursFromNow(-1), nil), http.StatusBadRequest},
		{"doctor id is not a doctor", f.patient, body(f.other.ID, "", hoursFromNow(24), nil), http.StatusNotFound},
		{"unknown doctor", f.patient, body(uuid.NewString(), "", hoursFromNow(24), nil), http.StatusNotFound},
		{"patient id is not a patient", f.admin, body(f.doctor.ID, f.doctor2.ID, hoursFromNow(24), nil), http.StatusNotFound},
		{"malformed doctor id", f.patient, body("dr-house", "", hoursFromNow(24), nil), http.StatusBadRequest},
		{"missing reason", f.patient, map[string]interface{}{"doctorId": f.doctor.ID, "startTime": hoursFromNow(24)}, http.StatusBadRequest},
		{"duration too long", f.patient, body(f.doctor.ID, "", hoursFromNow(72), map[string]interface{}{"durationMinutes": 600}), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, f.router(tt.caller), http.MethodPost, "/appointments", tt.body)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestCreateAppointmentRejectsDoubleBooking(t *testing.T) {
	f := newAppointmentFixture(t)
	first := f.book(t, f.patient, f.doctor, hoursFromNow(24))

	w := doJSON(t, f.router(f.other), http.MethodPost, "/appointments", map[string]interface{}{
		"doctorId":  f.doctor.ID,
		"startTime": hoursFromNow(24.25),
		"reason":    "Headache",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for an overlapping slot, got %d", w.Code)
	}

	// Back to back is fine, and so is another doctor at the same time.
	f.book(t, f.other, f.doctor, hoursFromNow(24.5))
	f.book(t, f.other, f.doctor2, hoursFromNow(24))

	w = doJSON(t, f.router(f.patient), http.MethodPatch, "/appointments/"+first.ID+"/status", map[string]string{"status": "cancelled"})
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	// A cancelled slot frees the calendar.
	f.book(t, f.other, f.doctor, hoursFromNow(24))
}

func TestGetAppointmentsScopedByRole(t *testing.T) {
	f := newAppointmentFixture(t)
	f.book(t, f.patient, f.doctor, hoursFromNow(48))
	f.book(t, f.patient, f.doctor2, hoursFromNow(24))
	f.book(t, f.other, f.doctor, hoursFromNow(72))

	tests := []struct {
		name   string
		caller *models.User
		query  string
		want   int
	}{
		{"patient sees own", f.patient, "", 2},
		{"other patient sees own", f.other, "", 1},
		{"doctor sees own calendar", f.doctor, "", 2},
		{"admin sees all", f.admin, "", 3},
		{"hospital sees all", f.hospital, "", 3},
		{"admin filters by doctor", f.admin, "?doctorId=" + f.doctor2.ID, 1},
		{"doctor cannot widen with filters", f.doctor2, "?doctorId=" + f.doctor.ID, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, f.router(tt.caller), http.MethodGet, "/appointments"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			var list []models.Appointment
			decodeData(t, w, &list)
			if len(list) != tt.want {
				t.Fatalf("expected %d appointments, got %d", tt.want, len(list))
			}
			for i := 1; i < len(list); i++ {
				if list[i].StartTime.Before(list[i-1].StartTime) {
					t.Fatal("expected appointments earliest first")
				}
			}
		})
	}

	w := doJSON(t, f.router(f.admin), http.MethodGet, "/appointments?patientId=nope", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed filter, got %d", w.Code)
	}
}

func TestGetAppointmentsEmptyIsArray(t *testing.T) {
	f := newAppointmentFixture(t)
	w := doJSON(t, f.router(f.patient), http.MethodGet, "/appointments", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"data":[]`) {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
}

func TestGetAppointmentByIDAccess(t *testing.T) {
	f := newAppointmentFixture(t)
	a := f.book(t, f.patient, f.doctor, hoursFromNow(24))

	tests := []struct {
		name   string
		caller *models.User
		id     string
		want   int
	}{
		{"patient involved", f.patient, a.ID, http.StatusOK},
		{"doctor involved", f.doctor, a.ID, http.StatusOK},
		{"hospital", f.hospital, a.ID, http.StatusOK},
		{"other patient", f.other, a.ID, http.StatusForbidden},
		{"other doctor", f.doctor2, a.ID, http.StatusForbidden},
		{"unknown id", f.admin, uuid.NewString(), http.StatusNotFound},
		{"malformed id", f.admin, "42", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, f.router(tt.caller), http.MethodGet, "/appointments/"+tt.id, nil)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestUpdateAppointmentStatus(t *testing.T) {
	f := newAppointmentFixture(t)
	a := f.book(t, f.patient, f.doctor, hoursFromNow(24))
	path := "/appointments/" + a.ID + "/status"

	steps := []struct {
		name   string
		caller *models.User
		status string
		want   int
	}{
		{"patient cannot confirm", f.patient, "confirmed", http.StatusForbidden},
		{"other doctor cannot confirm", f.doctor2, "confirmed", http.StatusForbidden},
		{"statuses are lower case", f.doctor, "CONFIRMED", http.StatusBadRequest},
		{"rescheduled is not set directly", f.doctor, "rescheduled", http.StatusBadRequest},
		{"doctor confirms", f.doctor, "confirmed", http.StatusOK},
		{"patient cancels", f.patient, "cancelled", http.StatusOK},
		{"cancelled is final", f.admin, "confirmed", http.StatusConflict},
	}
	for _, s := range steps {
		w := doJSON(t, f.router(s.caller), http.MethodPatch, path, map[string]string{"status": s.status, "notes": s.name})
		if w.Code != s.want {
			t.Fatalf("%s: expected %d, got %d: %s", s.name, s.want, w.Code, w.Body.String())
		}
	}

	stored := f.store.appointments[a.ID]
	if stored.Status != models.StatusCancelled || stored.Notes != "patient cancels" {
		t.Fatalf("unexpected stored appointment: %+v", stored)
	}
}

func TestRescheduleAppointment(t *testing.T) {
	f := newAppointmentFixture(t)
	w := doJSON(t, f.router(f.patient), http.MethodPost, "/appointments", map[string]interface{}{
		"doctorId":        f.doctor.ID,
		"startTime":       hoursFromNow(24),
		"durationMinutes": 60,
		"reason":          "Back pain",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var a models.Appointment
	decodeData(t, w, &a)
	f.book(t, f.other, f.doctor, hoursFromNow(48))
	path := "/appointments/" + a.ID + "/reschedule"

	if w := doJSON(t, f.router(f.other), http.MethodPatch, path, map[string]string{"newAppointmentAt": hoursFromNow(30)}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for an uninvolved patient, got %d", w.Code)
	}
	if w := doJSON(t, f.router(f.doctor), http.MethodPatch, path, map[string]string{"newAppointmentAt": hoursFromNow(-2)}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a past date, got %d", w.Code)
	}
	if w := doJSON(t, f.router(f.doctor), http.MethodPatch, path, map[string]string{"newAppointmentAt": hoursFromNow(47.5)}); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 when moving onto a booked slot, got %d", w.Code)
	}
	// Moving within its own slot does not clash with itself.
	w = doJSON(t, f.router(f.doctor), http.MethodPatch, path, map[string]string{"newAppointmentAt": hoursFromNow(24.5)})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var moved models.Appointment
	decodeData(t, w, &moved)
	if moved.Status != models.StatusRescheduled {
		t.Fatalf("expected rescheduled status, got %s", moved.Status)
	}
	if got := moved.EndTime.Sub(moved.StartTime); got != time.Hour {
		t.Fatalf("expected duration to be kept, got %v", got)
	}

	f.store.appointments[a.ID].Status = models.StatusCompleted
	if w := doJSON(t, f.router(f.admin), http.MethodPatch, path, map[string]string{"newAppointmentAt": hoursFromNow(96)}); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a completed appointment, got %d", w.Code)
	}
}

func TestDeleteAppointment(t *testing.T) {
	f := newAppointmentFixture(t)
	a := f.book(t, f.patient, f.doctor, hoursFromNow(24))
	path := "/appointments/" + a.ID

	if w := doJSON(t, f.router(f.patient), http.MethodDelete, path, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for the patient, got %d", w.Code)
	}
	if w := doJSON(t, f.router(f.doctor2), http.MethodDelete, path, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for an uninvolved doctor, got %d", w.Code)
	}
	if w := doJSON(t, f.router(f.doctor), http.MethodDelete, path, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := doJSON(t, f.router(f.admin), http.MethodDelete, path, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestAppointmentStoreFailure(t *testing.T) {
	f := newAppointmentFixture(t)
	f.store.failWith = errDatabaseDown

	w := doJSON(t, f.router(f.patient), http.MethodPost, "/appointments", map[string]interface{}{
		"doctorId":  f.doctor.ID,
		"startTime": hoursFromNow(24),
		"reason":    "Check-up",
	})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), errDatabaseDown.Error()) {
		t.Fatal("internal error details must not leak")
	}
}
