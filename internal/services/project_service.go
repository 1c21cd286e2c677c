package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
)

// projectService handles project-related business logic.
type projectService struct {
	db *gorm.DB
}

// NewProjectService creates a new ProjectServicer.
func NewProjectService(db *gorm.DB) ProjectServicer {
	return &projectService{db: db}
}

// CreateProject creates a project under an existing department. An empty
// status defaults to planned.
func (s *projectService) CreateProject(actorID string, in ProjectInput) (*models.Project, error) {
	if in.EndDate.Before(in.StartDate) {
		return nil, apperrors.ErrInvalidDateRange
	}

	var dept models.Department
	if err := s.db.Select("id").Where("id = ?", in.DepartmentID).First(&dept).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDepartmentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	status := in.Status
	if status == "" {
		status = models.ProjectStatusPlanned
	}

	project := &models.Project{
		Name:            in.Name,
		DepartmentID:    in.DepartmentID,
		AllocatedAmount: in.AllocatedAmount,
		Description:     in.Description,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		Status:          status,
		IsActive:        true,
		CreatedBy:       actorID,
	}

	if err := s.db.Create(project).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return project, nil
}

// GetProjects returns a paginated list of projects with optional filters.
func (s *projectService) GetProjects(page pagination.PageRequest, filter ProjectFilter) (*pagination.PageResponse[models.Project], error) {
	base := s.db.Model(&models.Project{})
	if filter.DepartmentID != nil {
		base = base.Where("department_id = ?", *filter.DepartmentID)
	}
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}
	if filter.IsActive != nil {
		base = base.Where("is_active = ?", *filter.IsActive)
	}

	result, err := pagination.List[models.Project](base, page, "created_at DESC", "Department")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetProjectByID returns a project with its department.
func (s *projectService) GetProjectByID(projectID string) (*models.Project, error) {
	var project models.Project
	if err := s.db.Preload("Department").Where("id = ?", projectID).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProjectNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &project, nil
}

// UpdateProject applies the non-nil fields of upd and returns what changed.
func (s *projectService) UpdateProject(projectID string, upd ProjectUpdate) (*models.Project, Changes, error) {
	project, err := s.GetProjectByID(projectID)
	if err != nil {
		return nil, nil, err
	}

	start, end := project.StartDate, project.EndDate
	if upd.StartDate != nil {
		start = *upd.StartDate
	}
	if upd.EndDate != nil {
		end = *upd.EndDate
	}
	if end.Before(start) {
		return nil, nil, apperrors.ErrInvalidDateRange
	}

	changes := Changes{}
	updates := make(map[string]interface{})
	if upd.Name != nil {
		changes.track(updates, "name", project.Name, *upd.Name)
	}
	if upd.AllocatedAmount != nil {
		changes.track(updates, "allocated_amount", project.AllocatedAmount, *upd.AllocatedAmount)
	}
	if upd.Description != nil {
		changes.track(updates, "description", project.Description, *upd.Description)
	}
	if upd.StartDate != nil {
		changes.track(updates, "start_date", project.StartDate, *upd.StartDate)
	}
	if upd.EndDate != nil {
		changes.track(updates, "end_date", project.EndDate, *upd.EndDate)
	}
	if upd.Status != nil {
		changes.track(updates, "status", project.Status, *upd.Status)
	}
	if upd.IsActive != nil {
		changes.track(updates, "is_active", project.IsActive, *upd.IsActive)
	}

	if len(updates) == 0 {
		return project, changes, nil
	}
	if err := s.db.Model(&models.Project{}).Where("id = ?", project.ID).Updates(updates).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	project, err = s.GetProjectByID(projectID)
	if err != nil {
		return nil, nil, err
	}
	return project, changes, nil
}

// DeleteProject soft-deletes a project and returns it.
func (s *projectService) DeleteProject(projectID string) (*models.Project, error) {
	project, err := s.GetProjectByID(projectID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Delete(project).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return project, nil
}
