// Package appointments is the booking accessor: it validates input, scopes
// reads and writes to the caller, and drives status changes through the
// lifecycle table.
package appointments

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"carebook-server/internal/apperrors"
	"carebook-server/internal/lifecycle"
	"carebook-server/internal/metrics"
	"carebook-server/internal/models"
	"carebook-server/internal/session"
	"carebook-server/internal/utils"
)

// Store is the persistence the service needs.
type Store interface {
	CreateAppointment(ctx context.Context, appointment *models.Appointment) error
	AppointmentByID(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID string) ([]models.Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID string) ([]models.Appointment, error)
	ListAllAppointments(ctx context.Context) ([]models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error
	DoctorByID(ctx context.Context, id string) (*models.Doctor, error)
	DoctorByUserID(ctx context.Context, userID string) (*models.Doctor, error)
}

type Service struct {
	store Store
	log   zerolog.Logger
}

func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log.With().Str("component", "appointments").Logger()}
}

// CreateInput is a booking request.
type CreateInput struct {
	PatientID string `validate:"required" label:"patient id"`
	DoctorID  string `validate:"required" label:"doctor id"`
	Date      string `validate:"required,isodate" label:"appointment date"`
	Time      string `validate:"required,clock,slot" label:"appointment time"`
	Notes     string `validate:"max=1000" label:"notes"`
}

// Slots returns the bookable start times.
func (s *Service) Slots() []string {
	out := make([]string, len(models.TimeSlots))
	copy(out, models.TimeSlots)
	return out
}

// Create books a pending appointment for the calling patient.
func (s *Service) Create(ctx context.Context, caller session.Snapshot, in CreateInput) (*models.Appointment, error) {
	in.Notes = strings.TrimSpace(in.Notes)
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	if !caller.Authenticated() || caller.UserID != in.PatientID {
		return nil, apperrors.Authorization("Patients can only book appointments for themselves")
	}

	if _, err := s.store.DoctorByID(ctx, in.DoctorID); err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Validation("Selected doctor does not exist")
		}
		return nil, err
	}

	appointment := &models.Appointment{
		PatientID:       in.PatientID,
		DoctorID:        in.DoctorID,
		AppointmentDate: in.Date,
		AppointmentTime: in.Time,
		Notes:           in.Notes,
		Status:          lifecycle.Initial,
	}
	if err := s.store.CreateAppointment(ctx, appointment); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", appointment.ID).
		Str("doctor_id", appointment.DoctorID).
		Msg("appointment booked")
	return appointment, nil
}

// ListForPatient returns a patient's appointments, earliest first.
func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	return s.store.ListAppointmentsByPatient(ctx, patientID)
}

// ListForDoctor returns a doctor's appointments, earliest first.
func (s *Service) ListForDoctor(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	return s.store.ListAppointmentsByDoctor(ctx, doctorID)
}

// ListAll returns every appointment, latest first.
func (s *Service) ListAll(ctx context.Context) ([]models.Appointment, error) {
	return s.store.ListAllAppointments(ctx)
}

// DoctorFor returns the doctor record owned by the caller.
func (s *Service) DoctorFor(ctx context.Context, caller session.Snapshot) (*models.Doctor, error) {
	doctor, err := s.store.DoctorByUserID(ctx, caller.UserID)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return nil, apperrors.Authorization("No doctor profile is linked to this account")
	}
	return doctor, err
}

// UpdateStatus moves an appointment to target on behalf of caller.
// Re-applying the current status is accepted without a write.
func (s *Service) UpdateStatus(ctx context.Context, caller session.Snapshot, appointmentID string, target models.AppointmentStatus) (*models.Appointment, error) {
	event, err := lifecycle.EventFor(target)
	if err != nil {
		return nil, err
	}

	appointment, err := s.store.AppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, caller, appointment, event); err != nil {
		return nil, err
	}

	if appointment.Status == target {
		return appointment, nil
	}

	next, err := lifecycle.Next(appointment.Status, event)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateAppointmentStatus(ctx, appointment.ID, appointment.Status, next); err != nil {
		return nil, err
	}

	metrics.AppointmentTransitions.WithLabelValues(string(event), string(next)).Inc()
	s.log.Info().
		Str("appointment_id", appointment.ID).
		Str("from", string(appointment.Status)).
		Str("to", string(next)).
		Msg("appointment status changed")

	appointment.Status = next
	return appointment, nil
}

func (s *Service) Accept(ctx context.Context, caller session.Snapshot, id string) (*models.Appointment, error) {
	return s.UpdateStatus(ctx, caller, id, models.StatusConfirmed)
}

func (s *Service) Reject(ctx context.Context, caller session.Snapshot, id string) (*models.Appointment, error) {
	return s.UpdateStatus(ctx, caller, id, models.StatusRejected)
}

func (s *Service) Cancel(ctx context.Context, caller session.Snapshot, id string) (*models.Appointment, error) {
	return s.UpdateStatus(ctx, caller, id, models.StatusCancelled)
}

func (s *Service) authorize(ctx context.Context, caller session.Snapshot, appointment *models.Appointment, event lifecycle.Event) error {
	if !caller.Authenticated() {
		return apperrors.Authentication("Unauthorized")
	}
	switch lifecycle.ActorFor(event) {
	case lifecycle.ActorOwningPatient:
		if appointment.PatientID != caller.UserID {
			return apperrors.Authorization("Only the patient who booked this appointment can cancel it")
		}
	case lifecycle.ActorAssignedDoctor:
		doctor, err := s.store.DoctorByUserID(ctx, caller.UserID)
		if err != nil && !apperrors.Is(err, apperrors.KindNotFound) {
			return err
		}
		if doctor == nil || doctor.ID != appointment.DoctorID {
			return apperrors.Authorization("Only the assigned doctor can accept or reject this appointment")
		}
	}
	return nil
}
