package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
)

// departmentService handles department-related business logic.
type departmentService struct {
	db *gorm.DB
}

// NewDepartmentService creates a new DepartmentServicer.
func NewDepartmentService(db *gorm.DB) DepartmentServicer {
	return &departmentService{db: db}
}

// CreateDepartment creates a department funded by an existing budget.
func (s *departmentService) CreateDepartment(actorID string, in DepartmentInput) (*models.Department, error) {
	var budget models.Budget
	if err := s.db.Select("id").Where("id = ?", in.BudgetID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	dept := &models.Department{
		Name:            in.Name,
		BudgetID:        in.BudgetID,
		AllocatedAmount: in.AllocatedAmount,
		Description:     in.Description,
		IsActive:        true,
		CreatedBy:       actorID,
	}

	if err := s.db.Create(dept).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return dept, nil
}

// GetDepartments returns a paginated list of departments with optional filters.
func (s *departmentService) GetDepartments(page pagination.PageRequest, filter DepartmentFilter) (*pagination.PageResponse[models.Department], error) {
	base := s.db.Model(&models.Department{})
	if filter.BudgetID != nil {
		base = base.Where("budget_id = ?", *filter.BudgetID)
	}
	if filter.IsActive != nil {
		base = base.Where("is_active = ?", *filter.IsActive)
	}

	result, err := pagination.List[models.Department](base, page, "created_at DESC", "Budget")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetDepartmentByID returns a department with its budget.
func (s *departmentService) GetDepartmentByID(departmentID string) (*models.Department, error) {
	var dept models.Department
	if err := s.db.Preload("Budget").Where("id = ?", departmentID).First(&dept).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDepartmentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &dept, nil
}

// UpdateDepartment applies the non-nil fields of upd and returns what changed.
func (s *departmentService) UpdateDepartment(departmentID string, upd DepartmentUpdate) (*models.Department, Changes, error) {
	dept, err := s.GetDepartmentByID(departmentID)
	if err != nil {
		return nil, nil, err
	}

	changes := Changes{}
	updates := make(map[string]interface{})
	if upd.Name != nil {
		changes.track(updates, "name", dept.Name, *upd.Name)
	}
	if upd.AllocatedAmount != nil {
		changes.track(updates, "allocated_amount", dept.AllocatedAmount, *upd.AllocatedAmount)
	}
	if upd.Description != nil {
		changes.track(updates, "description", dept.Description, *upd.Description)
	}
	if upd.IsActive != nil {
		changes.track(updates, "is_active", dept.IsActive, *upd.IsActive)
	}

	if len(updates) == 0 {
		return dept, changes, nil
	}
	if err := s.db.Model(&models.Department{}).Where("id = ?", dept.ID).Updates(updates).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	dept, err = s.GetDepartmentByID(departmentID)
	if err != nil {
		return nil, nil, err
	}
	return dept, changes, nil
}

// DeleteDepartment soft-deletes a department and returns it.
func (s *departmentService) DeleteDepartment(departmentID string) (*models.Department, error) {
	dept, err := s.GetDepartmentByID(departmentID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Delete(dept).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return dept, nil
}
