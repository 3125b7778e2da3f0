package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"carebook-server/internal/clinic"
	"carebook-server/internal/enrich"
	"carebook-server/internal/middleware"
	"carebook-server/internal/models"
	"carebook-server/internal/session"
	"carebook-server/internal/store"
	"carebook-server/internal/utils"
)

// DashboardHandler composes the role-specific landing views.
type DashboardHandler struct {
	Appointments *AppointmentHandler
	Clinic       *clinic.Service
	Store        *store.Store
}

func NewDashboardHandler(appointments *AppointmentHandler, clinicSvc *clinic.Service, st *store.Store) *DashboardHandler {
	return &DashboardHandler{Appointments: appointments, Clinic: clinicSvc, Store: st}
}

// StatusCounts tallies appointments per status.
type StatusCounts map[models.AppointmentStatus]int

// Dashboard is the payload of GET /dashboard. Sections not relevant to the
// role are omitted.
type Dashboard struct {
	Role         models.Role              `json:"role"`
	Appointments []enrich.AppointmentView `json:"appointments"`
	Counts       StatusCounts             `json:"counts"`
	Departments  []models.Department      `json:"departments,omitempty"`
	Doctor       *models.Doctor           `json:"doctor,omitempty"`
	Doctors      []enrich.DoctorView      `json:"doctors,omitempty"`
	TotalUsers   *int64                   `json:"totalUsers,omitempty"`
	TimeSlots    []string                 `json:"timeSlots,omitempty"`
}

// GetDashboard returns the dashboard for the caller's effective role.
// Principals without a role row get the patient dashboard.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	snap := middleware.SessionFromContext(c)
	ctx := c.Request.Context()

	dash := Dashboard{Role: snap.DashboardRole()}
	var err error
	switch dash.Role {
	case models.RoleAdmin:
		err = h.admin(ctx, snap, &dash)
	case models.RoleDoctor:
		err = h.doctor(ctx, snap, &dash)
	default:
		err = h.patient(ctx, snap, &dash)
	}
	if err != nil {
		utils.FromError(c, err)
		return
	}

	dash.Counts = countByStatus(dash.Appointments)
	utils.Success(c, "Dashboard fetched successfully", dash)
}

func (h *DashboardHandler) patient(ctx context.Context, snap session.Snapshot, dash *Dashboard) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		views, err := h.Appointments.listFor(gctx, snap)
		dash.Appointments = views
		return err
	})
	g.Go(func() error {
		departments, err := h.Clinic.ListDepartments(gctx)
		dash.Departments = departments
		return err
	})
	dash.TimeSlots = h.Appointments.Service.Slots()
	return g.Wait()
}

func (h *DashboardHandler) doctor(ctx context.Context, snap session.Snapshot, dash *Dashboard) error {
	doctor, err := h.Appointments.Service.DoctorFor(ctx, snap)
	if err != nil {
		return err
	}
	dash.Doctor = doctor
	dash.Appointments, err = h.Appointments.listForDoctor(ctx, doctor)
	return err
}

func (h *DashboardHandler) admin(ctx context.Context, snap session.Snapshot, dash *Dashboard) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		views, err := h.Appointments.listFor(gctx, snap)
		dash.Appointments = views
		return err
	})
	g.Go(func() error {
		departments, err := h.Clinic.ListDepartments(gctx)
		dash.Departments = departments
		return err
	})
	g.Go(func() error {
		doctors, err := h.Clinic.ListDoctors(gctx)
		dash.Doctors = doctors
		return err
	})
	g.Go(func() error {
		n, err := h.Store.CountUsers(gctx)
		dash.TotalUsers = &n
		return err
	})
	return g.Wait()
}

func countByStatus(views []enrich.AppointmentView) StatusCounts {
	counts := StatusCounts{
		models.StatusPending:   0,
		models.StatusConfirmed: 0,
		models.StatusRejected:  0,
		models.StatusCancelled: 0,
	}
	for _, v := range views {
		counts[v.Status]++
	}
	return counts
}
