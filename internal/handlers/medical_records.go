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

// MedicalRecordHandler handles a patient's medical history.
type MedicalRecordHandler struct {
	Store models.MedicalRecordStore
	now   func() time.Time
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(store models.MedicalRecordStore) *MedicalRecordHandler {
	return &MedicalRecordHandler{Store: store, now: time.Now}
}

// CreateMedicalRecordRequest represents the request body for creating a medical record.
type CreateMedicalRecordRequest struct {
	PatientID    string                   `json:"patientId" binding:"required,uuid"`
	PredictionID string                   `json:"predictionId" binding:"omitempty,uuid"`
	RecordType   models.MedicalRecordType `json:"recordType" binding:"omitempty,oneof=ConsultationNote LabResult Prescription ImagingReport VaccinationRecord AllergyRecord DischargeSummary"`
	VisitDate    *time.Time               `json:"visitDate"`
	Department   string                   `json:"department" binding:"max=100"`
	Diagnosis    string                   `json:"diagnosis" binding:"required"`
	Treatment    string                   `json:"treatment" binding:"required"`
	Notes        string                   `json:"notes"`
}

// CreateMedicalRecord handles a doctor writing a history entry for a
// patient. A linked analysis must belong to the same patient.
func (h *MedicalRecordHandler) CreateMedicalRecord(c *gin.Context) {
	var req CreateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	doctorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "Doctor ID not found in token")
		return
	}

	ctx := c.Request.Context()
	patient, err := h.Store.FindUserByID(ctx, req.PatientID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		h.serverError(c, "Failed to verify patient", err)
		return
	}
	if err != nil || patient.Role != models.RolePatient {
		utils.NotFound(c, "Patient not found")
		return
	}

	record := models.MedicalRecord{
		PatientID:  req.PatientID,
		DoctorID:   doctorID,
		RecordType: req.RecordType,
		VisitDate:  h.now().UTC(),
		Department: req.Department,
		Diagnosis:  req.Diagnosis,
		Treatment:  req.Treatment,
		Notes:      req.Notes,
	}
	if record.RecordType == "" {
		record.RecordType = models.RecordTypeConsultation
	}
	if req.VisitDate != nil {
		record.VisitDate = req.VisitDate.UTC()
	}

	if req.PredictionID != "" {
		analysis, err := h.Store.GetPrediction(ctx, req.PredictionID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				utils.NotFound(c, "Analysis not found")
			} else {
				h.serverError(c, "Failed to verify analysis", err)
			}
			return
		}
		if analysis.UserID != req.PatientID {
			utils.BadRequest(c, "Analysis belongs to another patient")
			return
		}
		record.PredictionID = &analysis.ID
	}

	if err := h.Store.CreateMedicalRecord(ctx, &record); err != nil {
		h.serverError(c, "Failed to create medical record", err)
		return
	}

	utils.Created(c, "Medical record created successfully", record)
}

// GetMedicalRecordsForPatient handles fetching a patient's history. The
// patient and clinical staff may read it.
func (h *MedicalRecordHandler) GetMedicalRecordsForPatient(c *gin.Context) {
	patientID := c.Param("patientId")
	if _, err := uuid.Parse(patientID); err != nil {
		utils.BadRequest(c, "Invalid Patient ID format")
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userID != patientID && !userRole.IsClinicalStaff() {
		utils.Forbidden(c, "You are not authorized to view these medical records")
		return
	}

	records, err := h.Store.ListMedicalRecords(c.Request.Context(), patientID)
	if err != nil {
		h.serverError(c, "Failed to fetch medical records", err)
		return
	}
	if records == nil {
		records = []models.MedicalRecord{}
	}

	utils.Success(c, "Medical records fetched successfully", records)
}

// GetMedicalRecordByID handles fetching a single medical record.
func (h *MedicalRecordHandler) GetMedicalRecordByID(c *gin.Context) {
	record, ok := h.loadRecord(c)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userID != record.PatientID && !userRole.IsClinicalStaff() {
		utils.Forbidden(c, "You are not authorized to view this medical record")
		return
	}

	utils.Success(c, "Medical record fetched successfully", record)
}

// UpdateMedicalRecordRequest represents the request body for updating a medical record.
// Empty fields are left unchanged.
type UpdateMedicalRecordRequest struct {
	RecordType models.MedicalRecordType `json:"recordType" binding:"omitempty,oneof=ConsultationNote LabResult Prescription ImagingReport VaccinationRecord AllergyRecord DischargeSummary"`
	VisitDate  *time.Time               `json:"visitDate"`
	Department string                   `json:"department" binding:"max=100"`
	Diagnosis  string                   `json:"diagnosis"`
	Treatment  string                   `json:"treatment"`
	Notes      string                   `json:"notes"`
}

// UpdateMedicalRecord handles updating a record. Only the doctor who wrote
// it or an admin may change it.
func (h *MedicalRecordHandler) UpdateMedicalRecord(c *gin.Context) {
	var req UpdateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	record, ok := h.loadRecord(c)
	if !ok || !h.authorOrAdmin(c, record, "update") {
		return
	}

	if req.RecordType != "" {
		record.RecordType = req.RecordType
	}
	if req.VisitDate != nil {
		record.VisitDate = req.VisitDate.UTC()
	}
	if req.Department != "" {
		record.Department = req.Department
	}
	if req.Diagnosis != "" {
		record.Diagnosis = req.Diagnosis
	}
	if req.Treatment != "" {
		record.Treatment = req.Treatment
	}
	if req.Notes != "" {
		record.Notes = req.Notes
	}

	if err := h.Store.SaveMedicalRecord(c.Request.Context(), record); err != nil {
		h.serverError(c, "Failed to update medical record", err)
		return
	}

	utils.Success(c, "Medical record updated successfully", record)
}

// DeleteMedicalRecord handles deleting a medical record.
// Only accessible by the doctor who created it or an admin.
func (h *MedicalRecordHandler) DeleteMedicalRecord(c *gin.Context) {
	record, ok := h.loadRecord(c)
	if !ok || !h.authorOrAdmin(c, record, "delete") {
		return
	}

	if err := h.Store.DeleteMedicalRecord(c.Request.Context(), record.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.NotFound(c, "Medical record not found")
			return
		}
		h.serverError(c, "Failed to delete medical record", err)
		return
	}

	utils.Success(c, "Medical record deleted successfully", nil)
}

func (h *MedicalRecordHandler) authorOrAdmin(c *gin.Context, record *models.MedicalRecord, action string) bool {
	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RoleAdmin || (userRole == models.RoleDoctor && userID == record.DoctorID) {
		return true
	}
	utils.Forbidden(c, "You are not authorized to "+action+" this medical record")
	return false
}

func (h *MedicalRecordHandler) loadRecord(c *gin.Context) (*models.MedicalRecord, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		utils.BadRequest(c, "Invalid Medical Record ID format")
		return nil, false
	}

	record, err := h.Store.GetMedicalRecord(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.NotFound(c, "Medical record not found")
		} else {
			h.serverError(c, "Failed to fetch medical record", err)
		}
		return nil, false
	}
	return record, true
}

func (h *MedicalRecordHandler) serverError(c *gin.Context, msg string, err error) {
	log.Printf("medical records: %s: %v", msg, err)
	utils.InternalServerError(c, msg)
}
