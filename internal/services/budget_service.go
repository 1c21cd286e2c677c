package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// CreateBudget creates a new fiscal-year budget.
func (s *budgetService) CreateBudget(actorID string, in BudgetInput) (*models.Budget, error) {
	if in.EndDate.Before(in.StartDate) {
		return nil, apperrors.ErrInvalidDateRange
	}

	budget := &models.Budget{
		Name:        in.Name,
		FiscalYear:  in.FiscalYear,
		TotalAmount: in.TotalAmount,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedBy:   actorID,
	}

	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

// GetBudgets returns a paginated list of budgets, newest first.
func (s *budgetService) GetBudgets(page pagination.PageRequest, fiscalYear *string) (*pagination.PageResponse[models.Budget], error) {
	base := s.db.Model(&models.Budget{})
	if fiscalYear != nil {
		base = base.Where("fiscal_year = ?", *fiscalYear)
	}

	result, err := pagination.List[models.Budget](base, page, "created_at DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetBudgetByID returns a budget with its departments.
func (s *budgetService) GetBudgetByID(budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Departments").Where("id = ?", budgetID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget applies the non-nil fields of upd and returns what changed.
func (s *budgetService) UpdateBudget(budgetID string, upd BudgetUpdate) (*models.Budget, Changes, error) {
	budget, err := s.GetBudgetByID(budgetID)
	if err != nil {
		return nil, nil, err
	}

	start, end := budget.StartDate, budget.EndDate
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
		changes.track(updates, "name", budget.Name, *upd.Name)
	}
	if upd.FiscalYear != nil {
		changes.track(updates, "fiscal_year", budget.FiscalYear, *upd.FiscalYear)
	}
	if upd.TotalAmount != nil {
		changes.track(updates, "total_amount", budget.TotalAmount, *upd.TotalAmount)
	}
	if upd.Description != nil {
		changes.track(updates, "description", budget.Description, *upd.Description)
	}
	if upd.StartDate != nil {
		changes.track(updates, "start_date", budget.StartDate, *upd.StartDate)
	}
	if upd.EndDate != nil {
		changes.track(updates, "end_date", budget.EndDate, *upd.EndDate)
	}

	if len(updates) == 0 {
		return budget, changes, nil
	}
	if err := s.db.Model(&models.Budget{}).Where("id = ?", budget.ID).Updates(updates).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	budget, err = s.GetBudgetByID(budgetID)
	if err != nil {
		return nil, nil, err
	}
	return budget, changes, nil
}

// DeleteBudget soft-deletes a budget and returns it.
func (s *budgetService) DeleteBudget(budgetID string) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(budgetID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Delete(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budget, nil
}
