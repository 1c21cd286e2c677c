package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
	"trustledger/internal/services"
)

// DepartmentHandler handles department-related requests.
type DepartmentHandler struct {
	departmentService services.DepartmentServicer
	auditService      services.AuditServicer
}

// NewDepartmentHandler creates a new DepartmentHandler.
func NewDepartmentHandler(departmentService services.DepartmentServicer, auditService services.AuditServicer) *DepartmentHandler {
	return &DepartmentHandler{departmentService: departmentService, auditService: auditService}
}

// CreateDepartmentRequest represents the request payload for creating a department.
type CreateDepartmentRequest struct {
	Name            string `json:"name" binding:"required,min=1,max=100"`
	BudgetID        string `json:"budget_id" binding:"required,uuid"`
	AllocatedAmount int64  `json:"allocated_amount" binding:"gte=0"`
	Description     string `json:"description" binding:"max=500"`
}

// UpdateDepartmentRequest represents the request payload for updating a department.
type UpdateDepartmentRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=1,max=100"`
	AllocatedAmount *int64  `json:"allocated_amount" binding:"omitempty,gte=0"`
	Description     *string `json:"description" binding:"omitempty,max=500"`
	IsActive        *bool   `json:"is_active"`
}

// CreateDepartment handles the creation of a new department.
// @Summary     Create a department
// @Description Create a department funded by a budget
// @Tags        departments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateDepartmentRequest true "Department details"
// @Success     201 {object} models.Department "Department created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /departments [post]
func (h *DepartmentHandler) CreateDepartment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	department, err := h.departmentService.CreateDepartment(userID, services.DepartmentInput{
		Name:            req.Name,
		BudgetID:        req.BudgetID,
		AllocatedAmount: req.AllocatedAmount,
		Description:     req.Description,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, models.AuditEntityDepartment, department.ID, models.AuditActionCreate, req)

	c.JSON(http.StatusCreated, gin.H{"department": department})
}

// GetDepartments handles listing departments.
// @Summary     Get departments
// @Description Get a paginated list of departments
// @Tags        departments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       budget_id query string false "Filter by budget"
// @Param       is_active query bool   false "Filter by active status"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Department] "Paginated departments"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /departments [get]
func (h *DepartmentHandler) GetDepartments(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	isActive, err := optionalBoolQuery(c, "is_active")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.departmentService.GetDepartments(page, services.DepartmentFilter{
		BudgetID: optionalQuery(c, "budget_id"),
		IsActive: isActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetDepartment handles retrieving a specific department.
// @Summary     Get department by ID
// @Description Get a specific department by ID
// @Tags        departments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Department ID"
// @Success     200 {object} models.Department "Department details"
// @Failure     400 {object} ErrorResponse "Invalid department ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Department not found"
// @Router      /departments/{id} [get]
func (h *DepartmentHandler) GetDepartment(c *gin.Context) {
	departmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	department, err := h.departmentService.GetDepartmentByID(departmentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"department": department})
}

// UpdateDepartment handles updating an existing department.
// @Summary     Update department
// @Description Update an existing department
// @Tags        departments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                  true "Department ID"
// @Param       request body UpdateDepartmentRequest true "Updated department details"
// @Success     200 {object} models.Department "Updated department"
// @Failure     400 {object} ErrorResponse "Invalid input or department ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Department not found"
// @Router      /departments/{id} [put]
func (h *DepartmentHandler) UpdateDepartment(c *gin.Context) {
	departmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	department, changes, err := h.departmentService.UpdateDepartment(departmentID, services.DepartmentUpdate{
		Name:            req.Name,
		AllocatedAmount: req.AllocatedAmount,
		Description:     req.Description,
		IsActive:        req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	if len(changes) > 0 {
		recordAudit(c, h.auditService, models.AuditEntityDepartment, department.ID, models.AuditActionUpdate, changes)
	}

	c.JSON(http.StatusOK, gin.H{"department": department})
}

// DeleteDepartment handles deleting a department.
// @Summary     Delete department
// @Description Delete a department by ID (soft delete)
// @Tags        departments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Department ID"
// @Success     200 {object} MessageResponse "Department deleted"
// @Failure     400 {object} ErrorResponse "Invalid department ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Department not found"
// @Router      /departments/{id} [delete]
func (h *DepartmentHandler) DeleteDepartment(c *gin.Context) {
	departmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	department, err := h.departmentService.DeleteDepartment(departmentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, models.AuditEntityDepartment, department.ID, models.AuditActionDelete,
		map[string]interface{}{"name": department.Name, "budget_id": department.BudgetID})

	c.JSON(http.StatusOK, MessageResponse{Message: "Department deleted successfully"})
}
