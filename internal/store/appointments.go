package store

import (
	"context"

	"github.com/rs/zerolog"

	"carebook-server/internal/apperrors"
	"carebook-server/internal/models"
)

func (s *Store) CreateAppointment(ctx context.Context, appointment *models.Appointment) error {
	if err := s.conn(ctx).Create(appointment).Error; err != nil {
		return apperrors.Internal("Failed to create appointment", err)
	}
	return nil
}

func (s *Store) AppointmentByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := s.conn(ctx).First(&appointment, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Appointment not found", "Failed to load appointment")
	}
	if err := appointment.Check(); err != nil {
		return nil, apperrors.Internal("Failed to load appointment", err)
	}
	return &appointment, nil
}

// ListAppointmentsByPatient returns a patient's appointments, earliest first.
func (s *Store) ListAppointmentsByPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	return s.listAppointments(ctx, "appointment_date asc, appointment_time asc", "patient_id = ?", patientID)
}

// ListAppointmentsByDoctor returns a doctor's appointments, earliest first.
func (s *Store) ListAppointmentsByDoctor(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	return s.listAppointments(ctx, "appointment_date asc, appointment_time asc", "doctor_id = ?", doctorID)
}

// ListAllAppointments returns every appointment, latest first.
func (s *Store) ListAllAppointments(ctx context.Context) ([]models.Appointment, error) {
	return s.listAppointments(ctx, "appointment_date desc, appointment_time desc", "")
}

func (s *Store) listAppointments(ctx context.Context, order, where string, args ...any) ([]models.Appointment, error) {
	q := s.conn(ctx).Order(order)
	if where != "" {
		q = q.Where(where, args...)
	}
	var rows []models.Appointment
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperrors.Internal("Failed to fetch appointments", err)
	}

	appointments := rows[:0]
	for _, row := range rows {
		if err := row.Check(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("skipping malformed appointment row")
			continue
		}
		appointments = append(appointments, row)
	}
	return appointments, nil
}

// UpdateAppointmentStatus moves an appointment from one status to another.
// The write only applies while the row still holds from. A row that
// already holds to, because a concurrent request got there first, is
// accepted.
func (s *Store) UpdateAppointmentStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error {
	res := s.conn(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return apperrors.Internal("Failed to update appointment", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var current models.Appointment
	if err := s.conn(ctx).Select("status").First(&current, "id = ?", id).Error; err != nil {
		return notFoundOr(err, "Appointment not found", "Failed to update appointment")
	}
	if current.Status == to {
		return nil
	}
	return apperrors.Statef("Appointment is no longer %s", from)
}

// CountActiveAppointmentsForDoctor counts pending and confirmed appointments.
func (s *Store) CountActiveAppointmentsForDoctor(ctx context.Context, doctorID string) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ? AND status IN ?", doctorID, []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed}).
		Count(&n).Error
	if err != nil {
		return 0, apperrors.Internal("Failed to count appointments", err)
	}
	return n, nil
}
