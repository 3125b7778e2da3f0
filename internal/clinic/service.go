// Package clinic manages the directory patients book against: departments
// and the doctors assigned to them.
package clinic

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"carebook-server/internal/apperrors"
	"carebook-server/internal/enrich"
	"carebook-server/internal/models"
	"carebook-server/internal/utils"
)

type Store interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)
	DepartmentByID(ctx context.Context, id string) (*models.Department, error)
	CreateDepartment(ctx context.Context, department *models.Department) error
	UpdateDepartment(ctx context.Context, department *models.Department) error
	DeleteDepartment(ctx context.Context, id string) error
	CountDoctorsInDepartment(ctx context.Context, departmentID string) (int64, error)

	ListDoctors(ctx context.Context) ([]models.Doctor, error)
	ListDoctorsByDepartment(ctx context.Context, departmentID string) ([]models.Doctor, error)
	DeleteDoctor(ctx context.Context, id string) error
	CountActiveAppointmentsForDoctor(ctx context.Context, doctorID string) (int64, error)
}

type Service struct {
	store     Store
	assembler *enrich.Assembler
	log       zerolog.Logger
}

func NewService(store Store, assembler *enrich.Assembler, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		assembler: assembler,
		log:       log.With().Str("component", "clinic").Logger(),
	}
}

// DepartmentInput is the editable part of a department.
type DepartmentInput struct {
	Name        string `json:"name" validate:"required,max=100" label:"name"`
	Description string `json:"description" validate:"max=500" label:"description"`
}

func (in *DepartmentInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
}

func (s *Service) ListDepartments(ctx context.Context) ([]models.Department, error) {
	departments, err := s.store.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	if departments == nil {
		departments = []models.Department{}
	}
	return departments, nil
}

func (s *Service) CreateDepartment(ctx context.Context, in DepartmentInput) (*models.Department, error) {
	in.normalize()
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	department := &models.Department{Name: in.Name, Description: in.Description}
	if err := s.store.CreateDepartment(ctx, department); err != nil {
		return nil, err
	}
	s.log.Info().Str("department_id", department.ID).Str("name", department.Name).Msg("department created")
	return department, nil
}

func (s *Service) UpdateDepartment(ctx context.Context, id string, in DepartmentInput) (*models.Department, error) {
	in.normalize()
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	department := &models.Department{Name: in.Name, Description: in.Description}
	department.ID = id
	if err := s.store.UpdateDepartment(ctx, department); err != nil {
		return nil, err
	}
	return s.store.DepartmentByID(ctx, id)
}

// DeleteDepartment refuses while doctors are still assigned.
func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	if _, err := s.store.DepartmentByID(ctx, id); err != nil {
		return err
	}
	n, err := s.store.CountDoctorsInDepartment(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperrors.Statef("Department still has %d doctor(s) assigned", n)
	}
	if err := s.store.DeleteDepartment(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("department_id", id).Msg("department deleted")
	return nil
}

// ListDoctors returns every doctor with owner and department names, newest first.
func (s *Service) ListDoctors(ctx context.Context) ([]enrich.DoctorView, error) {
	doctors, err := s.store.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	return s.assembler.Doctors(ctx, doctors), nil
}

// ListDoctorsByDepartment feeds the booking dialog.
func (s *Service) ListDoctorsByDepartment(ctx context.Context, departmentID string) ([]enrich.DoctorView, error) {
	if _, err := s.store.DepartmentByID(ctx, departmentID); err != nil {
		return nil, err
	}
	doctors, err := s.store.ListDoctorsByDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	return s.assembler.Doctors(ctx, doctors), nil
}

// DeleteDoctor removes a doctor with no pending or confirmed appointments.
// Past appointments keep their doctor id and render without a doctor.
func (s *Service) DeleteDoctor(ctx context.Context, id string) error {
	active, err := s.store.CountActiveAppointmentsForDoctor(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return apperrors.Statef("Doctor still has %d open appointment(s)", active)
	}
	if err := s.store.DeleteDoctor(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("doctor_id", id).Msg("doctor deleted")
	return nil
}
