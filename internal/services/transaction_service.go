package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// CreateTransaction records a payment from a project to a vendor.
func (s *transactionService) CreateTransaction(actorID string, in TransactionInput) (*models.Transaction, error) {
	if in.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}
	if in.Status == "" {
		in.Status = models.TransactionStatusPending
	}

	transaction := &models.Transaction{
		ProjectID:     in.ProjectID,
		VendorID:      in.VendorID,
		Amount:        in.Amount,
		Date:          in.Date,
		Description:   in.Description,
		InvoiceNumber: in.InvoiceNumber,
		Status:        in.Status,
		CreatedBy:     actorID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureProject(tx, in.ProjectID); err != nil {
			return err
		}
		if err := ensureVendor(tx, in.VendorID); err != nil {
			return err
		}
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

func ensureProject(tx *gorm.DB, projectID string) error {
	var project models.Project
	if err := tx.Select("id").Where("id = ?", projectID).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrProjectNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func ensureVendor(tx *gorm.DB, vendorID string) error {
	var vendor models.Vendor
	if err := tx.Select("id").Where("id = ?", vendorID).First(&vendor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrVendorNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetTransactions retrieves a paginated, filtered list of transactions, newest first.
func (s *transactionService) GetTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	base := applyTransactionFilters(s.db.Model(&models.Transaction{}), filter)

	result, err := pagination.List[models.Transaction](base, page, "date DESC", "Project", "Vendor")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.VendorID != nil {
		q = q.Where("vendor_id = ?", *f.VendorID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	return q
}

// GetTransactionByID retrieves a transaction with its project and vendor.
func (s *transactionService) GetTransactionByID(transactionID string) (*models.Transaction, error) {
	return findTransaction(s.db, transactionID)
}

func findTransaction(db *gorm.DB, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := db.Preload("Project").Preload("Vendor").
		Where("id = ?", transactionID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction applies the non-nil fields of upd and returns what
// changed. An existing signature is left in place, so edits to signed fields
// surface as a failed signature verification.
func (s *transactionService) UpdateTransaction(transactionID string, upd TransactionUpdate) (*models.Transaction, Changes, error) {
	transaction, err := s.GetTransactionByID(transactionID)
	if err != nil {
		return nil, nil, err
	}
	if upd.Amount != nil && *upd.Amount <= 0 {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	changes := Changes{}
	updates := make(map[string]interface{})
	if upd.ProjectID != nil {
		changes.track(updates, "project_id", transaction.ProjectID, *upd.ProjectID)
	}
	if upd.VendorID != nil {
		changes.track(updates, "vendor_id", transaction.VendorID, *upd.VendorID)
	}
	if upd.Amount != nil {
		changes.track(updates, "amount", transaction.Amount, *upd.Amount)
	}
	if upd.Date != nil {
		changes.track(updates, "date", transaction.Date, *upd.Date)
	}
	if upd.Description != nil {
		changes.track(updates, "description", transaction.Description, *upd.Description)
	}
	if upd.InvoiceNumber != nil {
		changes.track(updates, "invoice_number", transaction.InvoiceNumber, *upd.InvoiceNumber)
	}
	if upd.Status != nil {
		changes.track(updates, "status", transaction.Status, *upd.Status)
	}

	if len(updates) == 0 {
		return transaction, changes, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, ok := updates["project_id"]; ok {
			if err := ensureProject(tx, *upd.ProjectID); err != nil {
				return err
			}
		}
		if _, ok := updates["vendor_id"]; ok {
			if err := ensureVendor(tx, *upd.VendorID); err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Transaction{}).Where("id = ?", transaction.ID).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	transaction, err = s.GetTransactionByID(transactionID)
	if err != nil {
		return nil, nil, err
	}
	return transaction, changes, nil
}

// DeleteTransaction soft-deletes a transaction and returns it.
func (s *transactionService) DeleteTransaction(transactionID string) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(transactionID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}
