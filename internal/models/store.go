package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned by stores when no row matches.
var ErrNotFound = errors.New("record not found")

// AccountStore persists users and their refresh tokens.
type AccountStore interface {
	CreateUser(ctx context.Context, user *User) error
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
	SaveUser(ctx context.Context, user *User) error

	CreateRefreshToken(ctx context.Context, token *RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
}

// UserDirectory lists and manages accounts for staff and admins.
type UserDirectory interface {
	// ListUsers returns users with the given role, or all users when role
	// is empty, ordered by last then first name.
	ListUsers(ctx context.Context, role Role) ([]User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
	SaveUser(ctx context.Context, user *User) error
	// DeleteUser removes the user together with their tokens, analysis
	// history, appointments and medical records.
	DeleteUser(ctx context.Context, id string) error
}

// PredictionStore persists analysis history.
type PredictionStore interface {
	CreatePrediction(ctx context.Context, record *PredictionRecord) error
	// ListPredictions returns the user's records, newest first.
	ListPredictions(ctx context.Context, userID string) ([]PredictionRecord, error)
	GetPrediction(ctx context.Context, id string) (*PredictionRecord, error)
	DeletePrediction(ctx context.Context, id string) error
}

// AppointmentFilter narrows ListAppointments. Empty fields match everything.
type AppointmentFilter struct {
	PatientID string
	DoctorID  string
}

// AppointmentStore persists appointments.
type AppointmentStore interface {
	FindUserByID(ctx context.Context, id string) (*User, error)

	CreateAppointment(ctx context.Context, appointment *Appointment) error
	// ListAppointments returns matching appointments, earliest first.
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error)
	GetAppointment(ctx context.Context, id string) (*Appointment, error)
	SaveAppointment(ctx context.Context, appointment *Appointment) error
	DeleteAppointment(ctx context.Context, id string) error
	// DoctorBooked reports whether the doctor has an open appointment
	// overlapping [start, end), not counting excludeID.
	DoctorBooked(ctx context.Context, doctorID string, start, end time.Time, excludeID string) (bool, error)
}

// MedicalRecordStore persists medical history entries.
type MedicalRecordStore interface {
	FindUserByID(ctx context.Context, id string) (*User, error)
	GetPrediction(ctx context.Context, id string) (*PredictionRecord, error)

	CreateMedicalRecord(ctx context.Context, record *MedicalRecord) error
	// ListMedicalRecords returns the patient's records, latest visit first.
	ListMedicalRecords(ctx context.Context, patientID string) ([]MedicalRecord, error)
	GetMedicalRecord(ctx context.Context, id string) (*MedicalRecord, error)
	SaveMedicalRecord(ctx context.Context, record *MedicalRecord) error
	DeleteMedicalRecord(ctx context.Context, id string) error
}

// GormStore implements every store interface on top of gorm.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore creates a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) CreateUser(ctx context.Context, user *User) error {
	return s.DB.WithContext(ctx).Create(user).Error
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByID(ctx context.Context, id string) (*User, error) {
	var user User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) SaveUser(ctx context.Context, user *User) error {
	return s.DB.WithContext(ctx).Save(user).Error
}

func (s *GormStore) ListUsers(ctx context.Context, role Role) ([]User, error) {
	query := s.DB.WithContext(ctx).Order("last_name, first_name")
	if role != "" {
		query = query.Where("role = ?", role)
	}
	var users []User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&PredictionRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("patient_id = ? OR doctor_id = ?", id, id).Delete(&Appointment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("patient_id = ? OR doctor_id = ?", id, id).Delete(&MedicalRecord{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&User{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) CreateRefreshToken(ctx context.Context, token *RefreshToken) error {
	return s.DB.WithContext(ctx).Create(token).Error
}

func (s *GormStore) FindRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	var stored RefreshToken
	if err := s.DB.WithContext(ctx).Where("token = ?", token).First(&stored).Error; err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

func (s *GormStore) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	return s.DB.WithContext(ctx).Save(token).Error
}

func (s *GormStore) CreatePrediction(ctx context.Context, record *PredictionRecord) error {
	return s.DB.WithContext(ctx).Create(record).Error
}

func (s *GormStore) ListPredictions(ctx context.Context, userID string) ([]PredictionRecord, error) {
	var records []PredictionRecord
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) GetPrediction(ctx context.Context, id string) (*PredictionRecord, error) {
	var record PredictionRecord
	if err := s.DB.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

func (s *GormStore) DeletePrediction(ctx context.Context, id string) error {
	result := s.DB.WithContext(ctx).Delete(&PredictionRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateAppointment(ctx context.Context, appointment *Appointment) error {
	return s.DB.WithContext(ctx).Create(appointment).Error
}

func (s *GormStore) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error) {
	query := s.DB.WithContext(ctx).Order("start_time ASC")
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.DoctorID != "" {
		query = query.Where("doctor_id = ?", filter.DoctorID)
	}
	var appointments []Appointment
	if err := query.Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}

func (s *GormStore) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	var appointment Appointment
	if err := s.DB.WithContext(ctx).First(&appointment, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &appointment, nil
}

func (s *GormStore) SaveAppointment(ctx context.Context, appointment *Appointment) error {
	return s.DB.WithContext(ctx).Save(appointment).Error
}

func (s *GormStore) DeleteAppointment(ctx context.Context, id string) error {
	result := s.DB.WithContext(ctx).Delete(&Appointment{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DoctorBooked(ctx context.Context, doctorID string, start, end time.Time, excludeID string) (bool, error) {
	query := s.DB.WithContext(ctx).Model(&Appointment{}).
		Where("doctor_id = ?", doctorID).
		Where("status IN ?", openAppointmentStatuses).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) CreateMedicalRecord(ctx context.Context, record *MedicalRecord) error {
	return s.DB.WithContext(ctx).Create(record).Error
}

func (s *GormStore) ListMedicalRecords(ctx context.Context, patientID string) ([]MedicalRecord, error) {
	var records []MedicalRecord
	err := s.DB.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("visit_date DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) GetMedicalRecord(ctx context.Context, id string) (*MedicalRecord, error) {
	var record MedicalRecord
	if err := s.DB.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

func (s *GormStore) SaveMedicalRecord(ctx context.Context, record *MedicalRecord) error {
	return s.DB.WithContext(ctx).Save(record).Error
}

func (s *GormStore) DeleteMedicalRecord(ctx context.Context, id string) error {
	result := s.DB.WithContext(ctx).Delete(&MedicalRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
