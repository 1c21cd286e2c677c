package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
)

// vendorService handles vendor-related business logic.
type vendorService struct {
	db *gorm.DB
}

// NewVendorService creates a new VendorServicer.
func NewVendorService(db *gorm.DB) VendorServicer {
	return &vendorService{db: db}
}

// CreateVendor registers a new vendor.
func (s *vendorService) CreateVendor(actorID string, in VendorInput) (*models.Vendor, error) {
	vendor := &models.Vendor{
		Name:        in.Name,
		GSTIN:       strings.ToUpper(in.GSTIN),
		Email:       strings.ToLower(in.Email),
		Phone:       in.Phone,
		Address:     in.Address,
		Description: in.Description,
		IsActive:    true,
		CreatedBy:   actorID,
	}

	if err := s.db.Create(vendor).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return vendor, nil
}

// GetVendors returns a paginated list of vendors sorted by name.
func (s *vendorService) GetVendors(page pagination.PageRequest, filter VendorFilter) (*pagination.PageResponse[models.Vendor], error) {
	base := s.db.Model(&models.Vendor{})
	if filter.IsActive != nil {
		base = base.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != nil && *filter.Search != "" {
		like := "%" + strings.ToLower(*filter.Search) + "%"
		base = base.Where("(LOWER(name) LIKE ? OR LOWER(gstin) LIKE ?)", like, like)
	}

	result, err := pagination.List[models.Vendor](base, page, "name ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetVendorByID returns a vendor by ID.
func (s *vendorService) GetVendorByID(vendorID string) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := s.db.Where("id = ?", vendorID).First(&vendor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrVendorNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &vendor, nil
}

// UpdateVendor applies the non-nil fields of upd and returns what changed.
func (s *vendorService) UpdateVendor(vendorID string, upd VendorUpdate) (*models.Vendor, Changes, error) {
	vendor, err := s.GetVendorByID(vendorID)
	if err != nil {
		return nil, nil, err
	}

	changes := Changes{}
	updates := make(map[string]interface{})
	if upd.Name != nil {
		changes.track(updates, "name", vendor.Name, *upd.Name)
	}
	if upd.GSTIN != nil {
		changes.track(updates, "gstin", vendor.GSTIN, strings.ToUpper(*upd.GSTIN))
	}
	if upd.Email != nil {
		changes.track(updates, "email", vendor.Email, strings.ToLower(*upd.Email))
	}
	if upd.Phone != nil {
		changes.track(updates, "phone", vendor.Phone, *upd.Phone)
	}
	if upd.Address != nil {
		changes.track(updates, "address", vendor.Address, *upd.Address)
	}
	if upd.Description != nil {
		changes.track(updates, "description", vendor.Description, *upd.Description)
	}
	if upd.IsActive != nil {
		changes.track(updates, "is_active", vendor.IsActive, *upd.IsActive)
	}

	if len(updates) == 0 {
		return vendor, changes, nil
	}
	if err := s.db.Model(&models.Vendor{}).Where("id = ?", vendor.ID).Updates(updates).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	vendor, err = s.GetVendorByID(vendorID)
	if err != nil {
		return nil, nil, err
	}
	return vendor, changes, nil
}

// DeleteVendor soft-deletes a vendor and returns it.
func (s *vendorService) DeleteVendor(vendorID string) (*models.Vendor, error) {
	vendor, err := s.GetVendorByID(vendorID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Delete(vendor).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return vendor, nil
}
