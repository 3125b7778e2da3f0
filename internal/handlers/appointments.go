package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"carebook-server/internal/appointments"
	"carebook-server/internal/enrich"
	"carebook-server/internal/middleware"
	"carebook-server/internal/models"
	"carebook-server/internal/session"
	"carebook-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service   *appointments.Service
	Assembler *enrich.Assembler
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(svc *appointments.Service, assembler *enrich.Assembler) *AppointmentHandler {
	return &AppointmentHandler{Service: svc, Assembler: assembler}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
// PatientID defaults to the caller.
type CreateAppointmentRequest struct {
	PatientID       string `json:"patientId"`
	DoctorID        string `json:"doctorId"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	Notes           string `json:"notes"`
}

// CreateAppointment books a pending appointment for the calling patient.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	snap := middleware.SessionFromContext(c)
	if req.PatientID == "" {
		req.PatientID = snap.UserID
	}

	appointment, err := h.Service.Create(c.Request.Context(), snap, appointments.CreateInput{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      req.AppointmentDate,
		Time:      req.AppointmentTime,
		Notes:     req.Notes,
	})
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.Created(c, "Appointment booked successfully", appointment)
}

// GetAppointments lists the caller's appointments according to their role:
// patients see their own, doctors see those assigned to them and admins
// see all of them.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	snap := middleware.SessionFromContext(c)
	views, err := h.listFor(c.Request.Context(), snap)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", views)
}

func (h *AppointmentHandler) listFor(ctx context.Context, snap session.Snapshot) ([]enrich.AppointmentView, error) {
	var (
		list []models.Appointment
		inc  enrich.Include
		err  error
	)
	switch snap.DashboardRole() {
	case models.RoleAdmin:
		list, err = h.Service.ListAll(ctx)
		inc = enrich.Include{Doctor: true, Patient: true}
	case models.RoleDoctor:
		doctor, derr := h.Service.DoctorFor(ctx, snap)
		if derr != nil {
			return nil, derr
		}
		return h.listForDoctor(ctx, doctor)
	default:
		list, err = h.Service.ListForPatient(ctx, snap.UserID)
		inc = enrich.Include{Doctor: true}
	}
	if err != nil {
		return nil, err
	}
	return h.Assembler.Appointments(ctx, list, inc), nil
}

// listForDoctor lists the appointments assigned to an already resolved doctor.
func (h *AppointmentHandler) listForDoctor(ctx context.Context, doctor *models.Doctor) ([]enrich.AppointmentView, error) {
	list, err := h.Service.ListForDoctor(ctx, doctor.ID)
	if err != nil {
		return nil, err
	}
	return h.Assembler.Appointments(ctx, list, enrich.Include{Patient: true}), nil
}

// GetSlots returns the bookable start times.
func (h *AppointmentHandler) GetSlots(c *gin.Context) {
	utils.Success(c, "Time slots fetched successfully", h.Service.Slots())
}

// UpdateStatusRequest represents the request body for a status change.
type UpdateStatusRequest struct {
	Status models.AppointmentStatus `json:"status" validate:"required" label:"status"`
}

// UpdateAppointmentStatus applies the status named in the body. Ownership
// and transition rules are enforced by the service.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.respondStatus(c, func(ctx context.Context, snap session.Snapshot, id string) (*models.Appointment, error) {
		return h.Service.UpdateStatus(ctx, snap, id, req.Status)
	})
}

func (h *AppointmentHandler) AcceptAppointment(c *gin.Context) {
	h.respondStatus(c, h.Service.Accept)
}

func (h *AppointmentHandler) RejectAppointment(c *gin.Context) {
	h.respondStatus(c, h.Service.Reject)
}

func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	h.respondStatus(c, h.Service.Cancel)
}

type statusAction func(ctx context.Context, snap session.Snapshot, id string) (*models.Appointment, error)

func (h *AppointmentHandler) respondStatus(c *gin.Context, action statusAction) {
	appointment, err := action(c.Request.Context(), middleware.SessionFromContext(c), c.Param("id"))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Appointment "+string(appointment.Status), appointment)
}
