package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusCompleted   AppointmentStatus = "completed"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// DefaultAppointmentDuration is used when a booking does not name a length.
const DefaultAppointmentDuration = 30 * time.Minute

// openAppointmentStatuses still occupy the doctor's calendar.
var openAppointmentStatuses = []string{
	string(StatusPending),
	string(StatusConfirmed),
	string(StatusRescheduled),
}

// IsOpen reports whether the appointment can still take place.
func (s AppointmentStatus) IsOpen() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRescheduled:
		return true
	}
	return false
}

// Appointment represents a scheduled visit between a patient and a doctor.
type Appointment struct {
	BaseModel
	PatientID  string            `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID   string            `gorm:"size:36;index;not null" json:"doctorId"`
	StartTime  time.Time         `gorm:"index" json:"startTime"`
	EndTime    time.Time         `json:"endTime"`
	Status     AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`
	Reason     string            `gorm:"size:255" json:"reason"`
	Notes      string            `gorm:"type:text" json:"notes,omitempty"`
	IsFollowUp bool              `gorm:"default:false" json:"isFollowUp"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}

// Involves reports whether userID is the appointment's patient or doctor.
func (a *Appointment) Involves(userID string) bool {
	return userID == a.PatientID || userID == a.DoctorID
}

// Overlaps reports whether the appointment intersects [start, end).
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && start.Before(a.EndTime)
}
