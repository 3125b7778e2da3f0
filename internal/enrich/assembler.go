// Package enrich attaches doctor, department and profile data to
// appointments for display. Missing or unreadable secondary records
// degrade to placeholder names; assembly itself never fails.
package enrich

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"carebook-server/internal/models"
)

const (
	UnknownDoctor     = "Unknown Doctor"
	UnknownDepartment = "Unknown Department"
	UnknownPatient    = "Unknown Patient"
)

type DoctorSource interface {
	DoctorsByIDs(ctx context.Context, ids []string) ([]models.Doctor, error)
}

type DepartmentSource interface {
	DepartmentsByIDs(ctx context.Context, ids []string) ([]models.Department, error)
}

type ProfileSource interface {
	UsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// ProfileRef is the display part of a user profile.
type ProfileRef struct {
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type DepartmentRef struct {
	Name string `json:"name"`
}

// DoctorView is a doctor row with its owner's name and department name.
type DoctorView struct {
	models.Doctor
	User       ProfileRef    `json:"user"`
	Department DepartmentRef `json:"department"`
}

// AppointmentView is an appointment ready for a dashboard. Doctor is nil
// when the referenced doctor row no longer exists.
type AppointmentView struct {
	models.Appointment
	Doctor  *DoctorView `json:"doctor"`
	Patient *ProfileRef `json:"patient,omitempty"`
}

// Include selects which references to resolve.
type Include struct {
	Doctor  bool
	Patient bool
}

type Assembler struct {
	doctors     DoctorSource
	departments DepartmentSource
	profiles    ProfileSource
	log         zerolog.Logger
}

func NewAssembler(doctors DoctorSource, departments DepartmentSource, profiles ProfileSource, log zerolog.Logger) *Assembler {
	return &Assembler{
		doctors:     doctors,
		departments: departments,
		profiles:    profiles,
		log:         log.With().Str("component", "enrich").Logger(),
	}
}

// Appointments returns one view per appointment, in input order.
func (a *Assembler) Appointments(ctx context.Context, appointments []models.Appointment, inc Include) []AppointmentView {
	views := make([]AppointmentView, len(appointments))
	if len(appointments) == 0 {
		return views
	}

	var doctorMap map[string]*DoctorView
	if inc.Doctor {
		ids := make([]string, 0, len(appointments))
		for _, ap := range appointments {
			ids = append(ids, ap.DoctorID)
		}
		doctors, err := a.doctors.DoctorsByIDs(ctx, ids)
		if err != nil {
			a.log.Error().Err(err).Msg("fetching doctors for appointments")
		}
		doctorMap = a.doctorViews(ctx, doctors)
	}

	var patientMap map[string]models.User
	if inc.Patient {
		ids := make([]string, 0, len(appointments))
		for _, ap := range appointments {
			ids = append(ids, ap.PatientID)
		}
		patientMap = a.profileMap(ctx, ids, "fetching patient profiles for appointments")
	}

	for i, ap := range appointments {
		views[i].Appointment = ap
		if inc.Doctor {
			views[i].Doctor = doctorMap[ap.DoctorID]
		}
		if inc.Patient {
			ref := ProfileRef{FullName: UnknownPatient}
			if p, ok := patientMap[ap.PatientID]; ok {
				ref = ProfileRef{FullName: p.FullName, Email: p.Email, Phone: p.Phone}
			}
			views[i].Patient = &ref
		}
	}
	return views
}

// Doctors enriches doctor rows with profile and department names, in input order.
func (a *Assembler) Doctors(ctx context.Context, doctors []models.Doctor) []DoctorView {
	byID := a.doctorViews(ctx, doctors)
	views := make([]DoctorView, 0, len(doctors))
	for _, d := range doctors {
		views = append(views, *byID[d.ID])
	}
	return views
}

// doctorViews resolves departments and owner profiles in parallel.
func (a *Assembler) doctorViews(ctx context.Context, doctors []models.Doctor) map[string]*DoctorView {
	deptIDs := make([]string, 0, len(doctors))
	userIDs := make([]string, 0, len(doctors))
	for _, d := range doctors {
		deptIDs = append(deptIDs, d.DepartmentID)
		userIDs = append(userIDs, d.UserID)
	}

	var (
		departments []models.Department
		profiles    map[string]models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(deptIDs) == 0 {
			return nil
		}
		var err error
		departments, err = a.departments.DepartmentsByIDs(gctx, deptIDs)
		if err != nil {
			a.log.Error().Err(err).Msg("fetching departments for doctors")
		}
		return nil
	})
	g.Go(func() error {
		profiles = a.profileMap(gctx, userIDs, "fetching doctor profiles")
		return nil
	})
	_ = g.Wait()

	deptNames := make(map[string]string, len(departments))
	for _, d := range departments {
		deptNames[d.ID] = d.Name
	}

	out := make(map[string]*DoctorView, len(doctors))
	for _, d := range doctors {
		view := &DoctorView{
			Doctor:     d,
			User:       ProfileRef{FullName: UnknownDoctor},
			Department: DepartmentRef{Name: UnknownDepartment},
		}
		if p, ok := profiles[d.UserID]; ok && p.FullName != "" {
			view.User = ProfileRef{FullName: p.FullName, Email: p.Email}
		}
		if name, ok := deptNames[d.DepartmentID]; ok {
			view.Department.Name = name
		}
		out[d.ID] = view
	}
	return out
}

func (a *Assembler) profileMap(ctx context.Context, ids []string, what string) map[string]models.User {
	out := map[string]models.User{}
	if len(ids) == 0 {
		return out
	}
	users, err := a.profiles.UsersByIDs(ctx, ids)
	if err != nil {
		a.log.Error().Err(err).Msg(what)
		return out
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}
