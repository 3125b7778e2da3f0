package handlers

import (
	"github.com/gin-gonic/gin"

	"carebook-server/internal/clinic"
	"carebook-server/internal/utils"
)

// ClinicHandler serves departments and the doctor directory.
type ClinicHandler struct {
	Service *clinic.Service
}

func NewClinicHandler(svc *clinic.Service) *ClinicHandler {
	return &ClinicHandler{Service: svc}
}

func (h *ClinicHandler) GetDepartments(c *gin.Context) {
	departments, err := h.Service.ListDepartments(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Departments fetched successfully", departments)
}

func (h *ClinicHandler) CreateDepartment(c *gin.Context) {
	var req clinic.DepartmentInput
	if !utils.BindJSON(c, &req) {
		return
	}
	department, err := h.Service.CreateDepartment(c.Request.Context(), req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Created(c, "Department created successfully", department)
}

func (h *ClinicHandler) UpdateDepartment(c *gin.Context) {
	var req clinic.DepartmentInput
	if !utils.BindJSON(c, &req) {
		return
	}
	department, err := h.Service.UpdateDepartment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Department updated successfully", department)
}

func (h *ClinicHandler) DeleteDepartment(c *gin.Context) {
	if err := h.Service.DeleteDepartment(c.Request.Context(), c.Param("id")); err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Department deleted successfully", nil)
}

// GetDepartmentDoctors lists the doctors a patient can book in a department.
func (h *ClinicHandler) GetDepartmentDoctors(c *gin.Context) {
	doctors, err := h.Service.ListDoctorsByDepartment(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Doctors fetched successfully", doctors)
}

func (h *ClinicHandler) GetDoctors(c *gin.Context) {
	doctors, err := h.Service.ListDoctors(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Doctors fetched successfully", doctors)
}

func (h *ClinicHandler) DeleteDoctor(c *gin.Context) {
	if err := h.Service.DeleteDoctor(c.Request.Context(), c.Param("id")); err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Doctor deleted successfully", nil)
}
