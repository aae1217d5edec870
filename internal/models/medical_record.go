package models

import (
	"time"
)

// MedicalRecordType represents the type of medical record
type MedicalRecordType string

const (
	RecordTypeConsultation     MedicalRecordType = "ConsultationNote"
	RecordTypeLabResult        MedicalRecordType = "LabResult"
	RecordTypePrescription     MedicalRecordType = "Prescription"
	RecordTypeImagingReport    MedicalRecordType = "ImagingReport"
	RecordTypeVaccination      MedicalRecordType = "VaccinationRecord"
	RecordTypeAllergy          MedicalRecordType = "AllergyRecord"
	RecordTypeDischargeSummary MedicalRecordType = "DischargeSummary"
)

// MedicalRecord is a doctor-authored entry in a patient's medical history.
// It may point at the symptom analysis that prompted the visit.
type MedicalRecord struct {
	BaseModel
	PatientID    string            `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID     string            `gorm:"size:36;index;not null" json:"doctorId"`
	PredictionID *string           `gorm:"size:36;index" json:"predictionId,omitempty"`
	RecordType   MedicalRecordType `gorm:"size:50" json:"recordType"`
	VisitDate    time.Time         `gorm:"index" json:"visitDate"`
	Department   string            `gorm:"size:100" json:"department,omitempty"`
	Diagnosis    string            `gorm:"type:text;not null" json:"diagnosis"`
	Treatment    string            `gorm:"type:text;not null" json:"treatment"`
	Notes        string            `gorm:"type:text" json:"notes,omitempty"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}
