package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"healthcare-portal-server/internal/middleware"
	"healthcare-portal-server/internal/models"
	"healthcare-portal-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Store models.AppointmentStore
	now   func() time.Time
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(store models.AppointmentStore) *AppointmentHandler {
	return &AppointmentHandler{Store: store, now: time.Now}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	DoctorID        string    `json:"doctorId" binding:"required,uuid"`
	PatientID       string    `json:"patientId" binding:"omitempty,uuid"` // defaults to the caller for patients
	StartTime       time.Time `json:"startTime" binding:"required"`
	DurationMinutes int       `json:"durationMinutes" binding:"omitempty,min=5,max=480"`
	Reason          string    `json:"reason" binding:"required,max=255"`
	Notes           string    `json:"notes"`
	IsFollowUp      bool      `json:"isFollowUp"`
}

// CreateAppointment handles booking an appointment. Patients book for
// themselves, doctors book into their own calendar, admins book for anyone.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	callerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	callerRole, _ := middleware.GetUserRoleFromContext(c)

	switch callerRole {
	case models.RolePatient:
		if req.PatientID == "" {
			req.PatientID = callerID
		}
		if req.PatientID != callerID {
			utils.Forbidden(c, "Patients can only book appointments for themselves")
			return
		}
	case models.RoleDoctor:
		if req.DoctorID != callerID {
			utils.Forbidden(c, "Doctors can only book appointments in their own calendar")
			return
		}
	case models.RoleAdmin:
	default:
		utils.Forbidden(c, "User role not permitted to book appointments")
		return
	}
	if req.PatientID == "" {
		utils.BadRequest(c, "patientId is required")
		return
	}

	if !req.StartTime.After(h.now()) {
		utils.BadRequest(c, "Appointment date must be in the future")
		return
	}

	if !h.requireRole(c, req.DoctorID, models.RoleDoctor, "Doctor not found") ||
		!h.requireRole(c, req.PatientID, models.RolePatient, "Patient not found") {
		return
	}

	duration := models.DefaultAppointmentDuration
	if req.DurationMinutes > 0 {
		duration = time.Duration(req.DurationMinutes) * time.Minute
	}
	appointment := models.Appointment{
		PatientID:  req.PatientID,
		DoctorID:   req.DoctorID,
		StartTime:  req.StartTime.UTC(),
		EndTime:    req.StartTime.UTC().Add(duration),
		Status:     models.StatusPending,
		Reason:     req.Reason,
		Notes:      req.Notes,
		IsFollowUp: req.IsFollowUp,
	}

	if !h.ensureDoctorFree(c, &appointment) {
		return
	}

	if err := h.Store.CreateAppointment(c.Request.Context(), &appointment); err != nil {
		log.Printf("appointments: create: %v", err)
		utils.InternalServerError(c, "Failed to create appointment")
		return
	}

	utils.Created(c, "Appointment created successfully", appointment)
}

// GetAppointmentsForUser handles fetching appointments for the logged-in
// user. Patients and doctors see their own; admins and hospitals see all,
// optionally narrowed with ?patientId= and ?doctorId=.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	var filter models.AppointmentFilter
	switch userRole {
	case models.RolePatient:
		filter.PatientID = userID
	case models.RoleDoctor:
		filter.DoctorID = userID
	case models.RoleAdmin, models.RoleHospital:
		filter.PatientID = c.Query("patientId")
		filter.DoctorID = c.Query("doctorId")
		for _, id := range []string{filter.PatientID, filter.DoctorID} {
			if id == "" {
				continue
			}
			if _, err := uuid.Parse(id); err != nil {
				utils.BadRequest(c, "Invalid user ID filter")
				return
			}
		}
	default:
		utils.Forbidden(c, "User role not permitted to view appointments")
		return
	}

	appointments, err := h.Store.ListAppointments(c.Request.Context(), filter)
	if err != nil {
		log.Printf("appointments: list: %v", err)
		utils.InternalServerError(c, "Failed to fetch appointments")
		return
	}
	if appointments == nil {
		appointments = []models.Appointment{}
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointment, ok := h.loadAppointment(c)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userRole != models.RoleHospital && !appointment.Involves(userID) {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateAppointmentStatusRequest represents the request body for updating an appointment's status.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required,oneof=pending confirmed cancelled completed"`
	Notes  string                   `json:"notes"` // e.g. a cancellation reason
}

// UpdateAppointmentStatus handles updating the status of an appointment.
// The doctor involved and admins may set any status; the patient may only
// cancel. Cancelled and completed appointments are final.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, ok := h.loadAppointment(c)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	switch {
	case userRole == models.RoleAdmin:
	case userRole == models.RoleDoctor && userID == appointment.DoctorID:
	case userRole == models.RolePatient && userID == appointment.PatientID:
		if req.Status != models.StatusCancelled {
			utils.Forbidden(c, "Patients can only cancel appointments")
			return
		}
	default:
		utils.Forbidden(c, "You are not authorized to update this appointment")
		return
	}

	if !appointment.Status.IsOpen() {
		utils.Conflict(c, "Appointment is already "+string(appointment.Status))
		return
	}

	appointment.Status = req.Status
	if req.Notes != "" {
		appointment.Notes = req.Notes
	}

	if err := h.Store.SaveAppointment(c.Request.Context(), appointment); err != nil {
		log.Printf("appointments: update status %s: %v", appointment.ID, err)
		utils.InternalServerError(c, "Failed to update appointment status")
		return
	}

	utils.Success(c, "Appointment status updated successfully", appointment)
}

// RescheduleAppointmentRequest represents the request body for rescheduling an appointment.
type RescheduleAppointmentRequest struct {
	NewAppointmentAt time.Time `json:"newAppointmentAt" binding:"required"`
	Notes            string    `json:"notes"`
}

// RescheduleAppointment moves an open appointment to a new start time,
// keeping its length.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if !req.NewAppointmentAt.After(h.now()) {
		utils.BadRequest(c, "New appointment date must be in the future")
		return
	}

	appointment, ok := h.loadAppointment(c)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	canReschedule := userRole == models.RoleAdmin ||
		(userRole == models.RoleDoctor && userID == appointment.DoctorID) ||
		(userRole == models.RolePatient && userID == appointment.PatientID)
	if !canReschedule {
		utils.Forbidden(c, "You are not authorized to reschedule this appointment")
		return
	}
	if !appointment.Status.IsOpen() {
		utils.Conflict(c, "Appointment is already "+string(appointment.Status))
		return
	}

	duration := appointment.EndTime.Sub(appointment.StartTime)
	if duration <= 0 {
		duration = models.DefaultAppointmentDuration
	}
	appointment.StartTime = req.NewAppointmentAt.UTC()
	appointment.EndTime = appointment.StartTime.Add(duration)
	appointment.Status = models.StatusRescheduled
	if req.Notes != "" {
		appointment.Notes = req.Notes
	}

	if !h.ensureDoctorFree(c, appointment) {
		return
	}

	if err := h.Store.SaveAppointment(c.Request.Context(), appointment); err != nil {
		log.Printf("appointments: reschedule %s: %v", appointment.ID, err)
		utils.InternalServerError(c, "Failed to reschedule appointment")
		return
	}

	utils.Success(c, "Appointment rescheduled successfully", appointment)
}

// DeleteAppointment removes an appointment. Only the doctor involved or an
// admin may delete; patients cancel instead.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	appointment, ok := h.loadAppointment(c)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && !(userRole == models.RoleDoctor && userID == appointment.DoctorID) {
		utils.Forbidden(c, "You are not authorized to delete this appointment")
		return
	}

	if err := h.Store.DeleteAppointment(c.Request.Context(), appointment.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.NotFound(c, "Appointment not found")
			return
		}
		log.Printf("appointments: delete %s: %v", appointment.ID, err)
		utils.InternalServerError(c, "Failed to delete appointment")
		return
	}

	utils.Success(c, "Appointment deleted successfully", nil)
}

func (h *AppointmentHandler) loadAppointment(c *gin.Context) (*models.Appointment, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		utils.BadRequest(c, "Invalid Appointment ID format")
		return nil, false
	}

	appointment, err := h.Store.GetAppointment(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			log.Printf("appointments: get %s: %v", id, err)
			utils.InternalServerError(c, "Failed to fetch appointment")
		}
		return nil, false
	}
	return appointment, true
}

// requireRole checks that id names an existing user with the given role.
func (h *AppointmentHandler) requireRole(c *gin.Context, id string, role models.Role, missing string) bool {
	user, err := h.Store.FindUserByID(c.Request.Context(), id)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		log.Printf("appointments: verify %s %s: %v", role, id, err)
		utils.InternalServerError(c, "Failed to verify appointment participants")
		return false
	}
	if err != nil || user.Role != role {
		utils.NotFound(c, missing)
		return false
	}
	return true
}

func (h *AppointmentHandler) ensureDoctorFree(c *gin.Context, appointment *models.Appointment) bool {
	booked, err := h.Store.DoctorBooked(c.Request.Context(), appointment.DoctorID,
		appointment.StartTime, appointment.EndTime, appointment.ID)
	if err != nil {
		log.Printf("appointments: check availability for %s: %v", appointment.DoctorID, err)
		utils.InternalServerError(c, "Failed to check doctor availability")
		return false
	}
	if booked {
		utils.Conflict(c, "Doctor already has an appointment at that time")
		return false
	}
	return true
}
