package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
	"trustledger/internal/services"
)

// ProjectHandler handles project-related requests.
type ProjectHandler struct {
	projectService services.ProjectServicer
	auditService   services.AuditServicer
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService services.ProjectServicer, auditService services.AuditServicer) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, auditService: auditService}
}

// CreateProjectRequest represents the request payload for creating a project.
type CreateProjectRequest struct {
	Name            string               `json:"name" binding:"required,min=1,max=100"`
	DepartmentID    string               `json:"department_id" binding:"required,uuid"`
	AllocatedAmount int64                `json:"allocated_amount" binding:"gte=0"`
	Description     string               `json:"description" binding:"max=500"`
	StartDate       time.Time            `json:"start_date" binding:"required"`
	EndDate         time.Time            `json:"end_date" binding:"required"`
	Status          models.ProjectStatus `json:"status" binding:"omitempty,project_status"`
}

// UpdateProjectRequest represents the request payload for updating a project.
type UpdateProjectRequest struct {
	Name            *string               `json:"name" binding:"omitempty,min=1,max=100"`
	AllocatedAmount *int64                `json:"allocated_amount" binding:"omitempty,gte=0"`
	Description     *string               `json:"description" binding:"omitempty,max=500"`
	StartDate       *time.Time            `json:"start_date"`
	EndDate         *time.Time            `json:"end_date"`
	Status          *models.ProjectStatus `json:"status" binding:"omitempty,project_status"`
	IsActive        *bool                 `json:"is_active"`
}

// CreateProject handles the creation of a new project.
// @Summary     Create a project
// @Description Create a project within a department
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateProjectRequest true "Project details"
// @Success     201 {object} models.Project "Project created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Department not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	project, err := h.projectService.CreateProject(userID, services.ProjectInput{
		Name:            req.Name,
		DepartmentID:    req.DepartmentID,
		AllocatedAmount: req.AllocatedAmount,
		Description:     req.Description,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Status:          req.Status,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, models.AuditEntityProject, project.ID, models.AuditActionCreate, req)

	c.JSON(http.StatusCreated, gin.H{"project": project})
}

// GetProjects handles listing projects.
// @Summary     Get projects
// @Description Get a paginated list of projects
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       department_id query string false "Filter by department"
// @Param       status        query string false "Filter by status"
// @Param       is_active     query bool   false "Filter by active status"
// @Param       page          query int    false "Page number (default 1)"
// @Param       page_size     query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Project] "Paginated projects"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /projects [get]
func (h *ProjectHandler) GetProjects(c *gin.Context) {
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

	var status *models.ProjectStatus
	if v := c.Query("status"); v != "" {
		s := models.ProjectStatus(v)
		if !s.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown project status"))
			return
		}
		status = &s
	}

	result, err := h.projectService.GetProjects(page, services.ProjectFilter{
		DepartmentID: optionalQuery(c, "department_id"),
		Status:       status,
		IsActive:     isActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetProject handles retrieving a specific project.
// @Summary     Get project by ID
// @Description Get a specific project by ID
// @Tags        projects
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Project ID"
// @Success     200 {object} models.Project "Project details"
// @Failure     400 {object} ErrorResponse "Invalid project ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Project not found"
// @Router      /projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	project, err := h.projectService.GetProjectByID(projectID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

// UpdateProject handles updating an existing project.
// @Summary     Update project
// @Description Update an existing project
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Project ID"
// @Param       request body UpdateProjectRequest true "Updated project details"
// @Success     200 {object} models.Project "Updated project"
// @Failure     400 {object} ErrorResponse "Invalid input or project ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Project not found"
// @Router      /projects/{id} [put]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	projectID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	project, changes, err := h.projectService.UpdateProject(projectID, services.ProjectUpdate{
		Name:            req.Name,
		AllocatedAmount: req.AllocatedAmount,
		Description:     req.Description,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Status:          req.Status,
		IsActive:        req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	if len(changes) > 0 {
		recordAudit(c, h.auditService, models.AuditEntityProject, project.ID, models.AuditActionUpdate, changes)
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

// DeleteProject handles deleting a project.
// @Summary     Delete project
// @Description Delete a project by ID (soft delete)
// @Tags        projects
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Project ID"
// @Success     200 {object} MessageResponse "Project deleted"
// @Failure     400 {object} ErrorResponse "Invalid project ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Project not found"
// @Router      /projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	project, err := h.projectService.DeleteProject(projectID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, models.AuditEntityProject, project.ID, models.AuditActionDelete,
		map[string]interface{}{"name": project.Name, "department_id": project.DepartmentID})

	c.JSON(http.StatusOK, MessageResponse{Message: "Project deleted successfully"})
}
